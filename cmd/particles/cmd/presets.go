package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/particles/internal/morphology"
)

func newPresetsCommand(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List structuring elements and morphology operations",
		Long: `List the structuring element presets usable with --element and the
operations usable with --morphology.

In masks '#' marks an active cell, 'o' the active hotspot and '.' an
inactive hotspot.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			masks, _ := cmd.Flags().GetBool("masks")
			return writePresets(cmd.OutOrStdout(), masks)
		},
	}
	cmd.Flags().Bool("masks", false, "draw the mask of every element")
	return cmd
}

func writePresets(w io.Writer, masks bool) error {
	title := cases.Title(language.English)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ELEMENT\tNAME\tSIZE\tHOTSPOT")
	for _, name := range morphology.PresetNames() {
		se := morphology.MustPreset(name)
		width, height := se.Size()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%dx%d\t(%d,%d)\n", name, title.String(name), width, height, se.CX, se.CY)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if masks {
		for _, name := range morphology.PresetNames() {
			_, _ = fmt.Fprintf(w, "\n%s:\n", title.String(name))
			for _, line := range strings.Split(strings.TrimRight(morphology.MustPreset(name).String(), "\n"), "\n") {
				_, _ = fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	_, err := fmt.Fprintf(w, "\nOperations: %s\n", strings.Join(morphology.OperationNames(), ", "))
	return err
}
