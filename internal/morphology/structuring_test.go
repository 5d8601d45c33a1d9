package morphology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetNames(t *testing.T) {
	names := PresetNames()
	assert.Equal(t, []string{
		"circle3", "circle5", "circle7", "diamond5", "diamond7", "dot",
		"none", "square2", "square3", "square4", "square5",
	}, names)
}

func TestPreset_Hotspots(t *testing.T) {
	tests := map[string][2]int{
		"none":     {0, 0},
		"dot":      {0, 0},
		"circle3":  {1, 1},
		"circle5":  {2, 2},
		"circle7":  {3, 3},
		"diamond5": {2, 2},
		"diamond7": {3, 3},
		"square2":  {0, 0},
		"square3":  {1, 1},
		"square4":  {1, 1},
		"square5":  {2, 2},
	}
	for name, hot := range tests {
		t.Run(name, func(t *testing.T) {
			se, err := Preset(name)
			require.NoError(t, err)
			assert.Equal(t, hot, [2]int{se.CX, se.CY})
		})
	}
}

func TestPreset_Masks(t *testing.T) {
	c7 := MustPreset("circle7")
	assert.Equal(t, []bool{false, false, true, true, true, false, false}, c7.Mask[0])
	assert.Equal(t, []bool{true, true, true, true, true, true, true}, c7.Mask[3])

	d5 := MustPreset("diamond5")
	assert.Len(t, d5.offsets(), 13)

	c5 := MustPreset("circle5")
	assert.Len(t, c5.offsets(), 21)

	w, h := MustPreset("square4").Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
	assert.Len(t, MustPreset("square4").offsets(), 16)

	assert.True(t, MustPreset("none").Empty())
	assert.False(t, MustPreset("dot").Empty())
}

func TestPreset_CaseInsensitiveAndCopied(t *testing.T) {
	se, err := Preset("  Circle3 ")
	require.NoError(t, err)
	se.Mask[0][0] = true

	again := MustPreset("circle3")
	assert.False(t, again.Mask[0][0], "presets must not be shared")
}

func TestPreset_Unknown(t *testing.T) {
	_, err := Preset("hexagon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circle3")
	assert.Panics(t, func() { MustPreset("hexagon") })
}

func TestStructuringElement_String(t *testing.T) {
	assert.Equal(t, " # \n#o#\n # \n", MustPreset("circle3").String())
}
