package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/particles/internal/particle"
)

func sampleResult() *Result {
	return &Result{
		Source:    "a.png",
		Width:     20,
		Height:    10,
		Threshold: 127,
		Particles: []particle.Particle{
			{
				Label:          2,
				Area:           6,
				BoundingBox:    particle.Box{Min: image.Pt(1, 1), Max: image.Pt(3, 2)},
				Centroid:       particle.Point{X: 2, Y: 1.5},
				Eccentricity:   0.745356,
				Perimeter:      6,
				Circularity:    2.094395,
				ConvexHull:     []particle.Point{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 1, Y: 2}},
				ConvexHullArea: 2,
				Density:        3,
				Diameter:       2.236068,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": "table", "JSON": "json", " csv ": "csv", "yml": "yaml", "yaml": "yaml"} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleResult())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "a.png", decoded["source"])
	assert.InDelta(t, 127, decoded["threshold"], 0)
	ps := decoded["particles"].([]any)
	require.Len(t, ps, 1)
	first := ps[0].(map[string]any)
	assert.InDelta(t, 6, first["area"], 0)
	assert.Contains(t, first, "convex_hull_area")
	assert.NotContains(t, decoded, "Labels")

	_, err = ToJSON(nil)
	assert.Error(t, err)
}

func TestToJSONResults(t *testing.T) {
	out, err := ToJSONResults([]*Result{sampleResult(), sampleResult()})
	require.NoError(t, err)
	var decoded []Result
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, sampleResult().Particles, decoded[1].Particles)
}

func TestToYAML(t *testing.T) {
	out, err := ToYAML([]*Result{sampleResult()})
	require.NoError(t, err)
	assert.Contains(t, out, "source: a.png")
	assert.Contains(t, out, "convex_hull_area: 2")

	var decoded []Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, sampleResult().Particles[0].Label, decoded[0].Particles[0].Label)
	assert.Equal(t, sampleResult().Particles[0].Centroid, decoded[0].Particles[0].Centroid)
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV([]*Result{sampleResult(), nil}, 2)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{
		"a.png", "2", "6", "2.00", "1.50", "0.75", "6", "2.09",
		"1", "1", "3", "2", "2.00", "3.00", "2.24",
	}, rows[1])
}

func TestWriteTable_Results(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []*Result{sampleResult()}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "a.png (threshold 127)\n"))
	assert.Contains(t, out, "Particles: 1")

	buf.Reset()
	bare := sampleResult()
	bare.Source = ""
	require.NoError(t, WriteTable(&buf, []*Result{bare}))
	assert.True(t, strings.HasPrefix(strings.TrimLeft(buf.String(), " "), "Label|"), buf.String())
}

func TestWriteResults(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResults(&buf, format, []*Result{sampleResult()}, 3))
			assert.NotEmpty(t, buf.String())
		})
	}
	var buf bytes.Buffer
	assert.Error(t, WriteResults(&buf, "xml", nil, 3))

	// A single JSON result is written as an object, several as an array.
	buf.Reset()
	require.NoError(t, WriteResults(&buf, FormatJSON, []*Result{sampleResult()}, 3))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	buf.Reset()
	require.NoError(t, WriteResults(&buf, FormatJSON, []*Result{sampleResult(), sampleResult()}, 3))
	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

func TestValidateResult(t *testing.T) {
	require.NoError(t, ValidateResult(sampleResult()))
	assert.Error(t, ValidateResult(nil))

	tests := map[string]func(*particle.Particle){
		"label":        func(p *particle.Particle) { p.Label = 1 },
		"area":         func(p *particle.Particle) { p.Area = 0 },
		"box outside":  func(p *particle.Particle) { p.BoundingBox.Max.X = 20 },
		"area too big": func(p *particle.Particle) { p.Area = 7 },
		"eccentricity": func(p *particle.Particle) { p.Eccentricity = 1.5 },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			res := sampleResult()
			modify(&res.Particles[0])
			assert.Error(t, ValidateResult(res))
		})
	}
}
