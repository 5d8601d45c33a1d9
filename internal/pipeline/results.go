package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/particles/internal/particle"
)

// Output formats understood by WriteResults.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatCSV, FormatYAML}

// ParseFormat normalizes a format name; "yml" is accepted for YAML.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case FormatTable, FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want one of %s)", s, strings.Join(Formats, ", "))
}

// ToJSON serializes a single result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes multiple results to pretty JSON.
func ToJSONResults(results []*Result) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAML serializes results as one YAML document.
func ToYAML(results []*Result) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(results); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CSVHeader is the header row written by ToCSV.
var CSVHeader = []string{
	"source", "label", "area", "centroid_x", "centroid_y", "eccentricity",
	"perimeter", "circularity", "bbox_x1", "bbox_y1", "bbox_x2", "bbox_y2",
	"convex_hull_area", "density", "diameter",
}

// ToCSV exports one row per particle over all results, floats with the
// given number of decimals (negative means shortest representation).
func ToCSV(results []*Result, precision int) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, p := range res.Particles {
			row := []string{
				res.Source,
				strconv.Itoa(p.Label),
				strconv.Itoa(p.Area),
				f(p.Centroid.X),
				f(p.Centroid.Y),
				f(p.Eccentricity),
				strconv.Itoa(p.Perimeter),
				f(p.Circularity),
				strconv.Itoa(p.BoundingBox.Min.X),
				strconv.Itoa(p.BoundingBox.Min.Y),
				strconv.Itoa(p.BoundingBox.Max.X),
				strconv.Itoa(p.BoundingBox.Max.Y),
				f(p.ConvexHullArea),
				f(p.Density),
				f(p.Diameter),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// WriteTable writes the fixed-column report of every result, each preceded
// by its source when there is more than one.
func WriteTable(w io.Writer, results []*Result) error {
	for i, res := range results {
		if res == nil {
			continue
		}
		if len(results) > 1 || res.Source != "" {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			name := res.Source
			if name == "" {
				name = fmt.Sprintf("image %d", i)
			}
			if _, err := fmt.Fprintf(w, "%s (threshold %d)\n", name, res.Threshold); err != nil {
				return err
			}
		}
		if err := particle.WriteTable(w, res.Particles); err != nil {
			return err
		}
	}
	return nil
}

// WriteResults writes results to w in the given format.
func WriteResults(w io.Writer, format string, results []*Result, precision int) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	var out string
	switch format {
	case FormatTable:
		return WriteTable(w, results)
	case FormatJSON:
		if len(results) == 1 {
			out, err = ToJSON(results[0])
		} else {
			out, err = ToJSONResults(results)
		}
		out += "\n"
	case FormatCSV:
		out, err = ToCSV(results, precision)
	case FormatYAML:
		out, err = ToYAML(results)
	}
	if err != nil {
		return fmt.Errorf("format %s: %w", format, err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// ValidateResult checks descriptor invariants of every particle in res.
func ValidateResult(res *Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	for i, p := range res.Particles {
		if p.Label < particle.FirstLabel {
			return fmt.Errorf("particle %d: label %d below %d", i, p.Label, particle.FirstLabel)
		}
		if p.Area <= 0 {
			return fmt.Errorf("particle %d: area must be positive", i)
		}
		b := p.BoundingBox
		if b.Min.X < 0 || b.Min.Y < 0 || b.Max.X >= res.Width || b.Max.Y >= res.Height || b.Min.X > b.Max.X || b.Min.Y > b.Max.Y {
			return fmt.Errorf("particle %d: bounding box %v-%v outside %dx%d image", i, b.Min, b.Max, res.Width, res.Height)
		}
		if p.Area > b.Width()*b.Height() {
			return fmt.Errorf("particle %d: area %d exceeds bounding box", i, p.Area)
		}
		if p.Eccentricity < 0 || p.Eccentricity > 1 {
			return fmt.Errorf("particle %d: eccentricity %.4f outside [0,1]", i, p.Eccentricity)
		}
	}
	return nil
}
