package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture is a synthetic scene stored on disk together with the expected
// analysis outcome.
type Fixture struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputFile   string `json:"input_file"`
	Scene       Scene  `json:"scene"`
	Particles   int    `json:"expected_particles"`
	Areas       []int  `json:"expected_areas,omitempty"` // leading areas in label order
}

// SampleFixtures returns the fixtures shared by pipeline, batch and CLI tests.
func SampleFixtures() []Fixture {
	speckled := DefaultScene()
	speckled.Speckles = []image.Point{{X: 70, Y: 5}, {X: 74, Y: 5}, {X: 70, Y: 20}}

	return []Fixture{
		{
			Name:        "default",
			Description: "three rectangles and a disk, bright on black",
			InputFile:   "default.png",
			Scene:       DefaultScene(),
			Particles:   4,
			Areas:       []int{80, 100, 80},
		},
		{
			Name:        "speckled",
			Description: "default scene with three single-pixel speckles",
			InputFile:   "speckled.png",
			Scene:       speckled,
			Particles:   7,
		},
		{
			Name:        "dark",
			Description: "default scene with dark particles on a white background",
			InputFile:   "dark.png",
			Scene:       DefaultScene().Inverted(),
			Particles:   4,
			Areas:       []int{80, 100, 80},
		},
	}
}

// SaveFixture writes the fixture image and its JSON description into dir
// and returns the image path.
func SaveFixture(t *testing.T, dir string, f Fixture) string {
	t.Helper()

	path := filepath.Join(dir, f.InputFile)
	SaveImage(t, f.Scene.Render(), path)

	data, err := json.MarshalIndent(f, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture to JSON")
	require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name+".json"), data, 0o600))
	return path
}

// LoadFixture reads a fixture description written by SaveFixture.
func LoadFixture(t *testing.T, dir, name string) Fixture {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name+".json")) //nolint:gosec // G304: test fixture path
	require.NoError(t, err, "Failed to read fixture %s", name)

	var f Fixture
	require.NoError(t, json.Unmarshal(data, &f), "Failed to unmarshal fixture JSON")
	return f
}

// WriteSampleFixtures saves every sample fixture into dir.
func WriteSampleFixtures(t *testing.T, dir string) []Fixture {
	t.Helper()
	fixtures := SampleFixtures()
	for _, f := range fixtures {
		SaveFixture(t, dir, f)
	}
	return fixtures
}
