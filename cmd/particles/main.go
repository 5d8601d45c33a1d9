package main

import "github.com/MeKo-Tech/particles/cmd/particles/cmd"

func main() {
	cmd.Execute()
}
