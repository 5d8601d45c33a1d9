package morphology

import (
	"fmt"
	"slices"
	"strings"
)

// StructuringElement is a rectangular mask of active cells with a hotspot.
// Cell (i, j) of Mask[j] is placed at pixel (x+i-CX, y+j-CY) when probing (x, y).
type StructuringElement struct {
	Mask [][]bool
	CX   int
	CY   int
}

// Empty reports whether the element has no active cells.
func (se StructuringElement) Empty() bool {
	for _, row := range se.Mask {
		if slices.Contains(row, true) {
			return false
		}
	}
	return true
}

// Size returns the mask width and height.
func (se StructuringElement) Size() (w, h int) {
	h = len(se.Mask)
	for _, row := range se.Mask {
		w = max(w, len(row))
	}
	return w, h
}

// offsets flattens the active cells into (dx, dy) pairs relative to the hotspot.
func (se StructuringElement) offsets() [][2]int {
	var out [][2]int
	for j, row := range se.Mask {
		for i, on := range row {
			if on {
				out = append(out, [2]int{i - se.CX, j - se.CY})
			}
		}
	}
	return out
}

// String draws the mask with '#' for active cells and marks the hotspot with 'o'/'.'.
func (se StructuringElement) String() string {
	var b strings.Builder
	for j, row := range se.Mask {
		for i, on := range row {
			hot := i == se.CX && j == se.CY
			switch {
			case on && hot:
				b.WriteByte('o')
			case on:
				b.WriteByte('#')
			case hot:
				b.WriteByte('.')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// parseMask builds a mask from rows where 'x' marks an active cell.
func parseMask(rows ...string) [][]bool {
	m := make([][]bool, len(rows))
	for j, r := range rows {
		m[j] = make([]bool, len(r))
		for i, c := range r {
			m[j][i] = c == 'x'
		}
	}
	return m
}

var presets = map[string]StructuringElement{
	"none": {Mask: [][]bool{{}}},
	"dot":  {Mask: parseMask("x")},
	"circle3": {Mask: parseMask(
		".x.",
		"xxx",
		".x.",
	), CX: 1, CY: 1},
	"circle5": {Mask: parseMask(
		".xxx.",
		"xxxxx",
		"xxxxx",
		"xxxxx",
		".xxx.",
	), CX: 2, CY: 2},
	"circle7": {Mask: parseMask(
		"..xxx..",
		".xxxxx.",
		"xxxxxxx",
		"xxxxxxx",
		"xxxxxxx",
		".xxxxx.",
		"..xxx..",
	), CX: 3, CY: 3},
	"diamond5": {Mask: parseMask(
		"..x..",
		".xxx.",
		"xxxxx",
		".xxx.",
		"..x..",
	), CX: 2, CY: 2},
	"diamond7": {Mask: parseMask(
		"...x...",
		"..xxx..",
		".xxxxx.",
		"xxxxxxx",
		".xxxxx.",
		"..xxx..",
		"...x...",
	), CX: 3, CY: 3},
	"square2": {Mask: parseMask("xx", "xx")},
	"square3": {Mask: parseMask("xxx", "xxx", "xxx"), CX: 1, CY: 1},
	"square4": {Mask: parseMask("xxxx", "xxxx", "xxxx", "xxxx"), CX: 1, CY: 1},
	"square5": {Mask: parseMask("xxxxx", "xxxxx", "xxxxx", "xxxxx", "xxxxx"), CX: 2, CY: 2},
}

// Preset returns a copy of the named structuring element. Names are case-insensitive.
func Preset(name string) (StructuringElement, error) {
	se, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return StructuringElement{}, fmt.Errorf("unknown structuring element %q (available: %s)",
			name, strings.Join(PresetNames(), ", "))
	}
	mask := make([][]bool, len(se.Mask))
	for j, row := range se.Mask {
		mask[j] = slices.Clone(row)
	}
	return StructuringElement{Mask: mask, CX: se.CX, CY: se.CY}, nil
}

// MustPreset is Preset for names known at compile time.
func MustPreset(name string) StructuringElement {
	se, err := Preset(name)
	if err != nil {
		panic(err)
	}
	return se
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
