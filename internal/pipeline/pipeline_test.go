package pipeline

import (
	"image"
	"image/color"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/morphology"
	"github.com/MeKo-Tech/particles/internal/particle"
	"github.com/MeKo-Tech/particles/internal/raster"
	"github.com/MeKo-Tech/particles/internal/render"
	"github.com/MeKo-Tech/particles/internal/testutil"
)

func newPipeline(t *testing.T, b *Builder) *Pipeline {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, AutoThreshold, cfg.Threshold)
	assert.False(t, cfg.ForegroundIsLow)
	assert.Equal(t, morphology.MorphClosing, cfg.Morphology.Operation)
	assert.Equal(t, "diamond5", cfg.Morphology.Element)
	assert.True(t, cfg.Render)
	assert.NoError(t, cfg.Validate())
}

func TestBuilder_Options(t *testing.T) {
	b := NewBuilder().
		WithThreshold(100).
		WithForegroundIsLow(true).
		WithInvert(true).
		WithMorphology(morphology.MorphOpening, "square3", 2).
		WithMinArea(5).
		WithWorkers(2).
		WithKeepMask(true).
		WithRender(false).
		WithParallelWorkers(3)
	cfg := b.Config()
	assert.Equal(t, 100, cfg.Threshold)
	assert.True(t, cfg.ForegroundIsLow)
	assert.True(t, cfg.Invert)
	assert.Equal(t, morphology.MorphConfig{Operation: morphology.MorphOpening, Element: "square3", Iterations: 2}, cfg.Morphology)
	assert.Equal(t, 5, cfg.MinArea)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.KeepMask)
	assert.False(t, cfg.Render)
	assert.Equal(t, 3, cfg.Parallel.MaxWorkers)

	assert.Equal(t, AutoThreshold, NewBuilder().WithThreshold(-7).Config().Threshold)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"threshold too high", func(c *Config) { c.Threshold = 256 }},
		{"threshold too low", func(c *Config) { c.Threshold = -2 }},
		{"negative min area", func(c *Config) { c.MinArea = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative iterations", func(c *Config) { c.Morphology.Iterations = -1 }},
		{"unknown element", func(c *Config) { c.Morphology.Element = "hexagon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			require.Error(t, cfg.Validate())
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.Morphology = morphology.MorphConfig{Operation: morphology.MorphNone, Element: "ignored"}
	assert.NoError(t, cfg.Validate())
}

func TestAnalyze_DefaultScene(t *testing.T) {
	p := newPipeline(t, NewBuilder().WithKeepMask(true))
	res, err := p.Analyze(testutil.DefaultScene().Render())
	require.NoError(t, err)

	assert.Equal(t, 80, res.Width)
	assert.Equal(t, 60, res.Height)
	assert.True(t, res.AutoThreshold)
	assert.Equal(t, 0, res.Threshold)
	require.Len(t, res.Particles, 4)
	assert.Equal(t, []int{80, 100, 80}, []int{res.Particles[0].Area, res.Particles[1].Area, res.Particles[2].Area})
	for i, pt := range res.Particles {
		assert.Equal(t, particle.FirstLabel+i, pt.Label)
	}

	a := res.Particles[0]
	assert.Equal(t, particle.Box{Min: image.Pt(5, 5), Max: image.Pt(14, 12)}, a.BoundingBox)
	assert.InDelta(t, 9.5, a.Centroid.X, 1e-9)
	assert.InDelta(t, 8.5, a.Centroid.Y, 1e-9)
	assert.Equal(t, 2*10+2*8-4, a.Perimeter)

	require.NotNil(t, res.Labels)
	assert.Equal(t, particle.FirstLabel, res.Labels.At(5, 5))
	require.NotNil(t, res.Mask)
	assert.Equal(t, raster.Foreground, res.Mask.At(5, 5))
	require.NotNil(t, res.Image)
	assert.Equal(t, image.Rect(0, 0, 80, 60), res.Image.Bounds())
	disk := res.Particles[3]
	assert.Equal(t, render.Red, res.Image.RGBAAt(disk.BoundingBox.Min.X, disk.BoundingBox.Min.Y), "bounding box corner")

	stages := make([]string, len(res.Timings))
	for i, st := range res.Timings {
		stages[i] = st.Stage
	}
	assert.Equal(t, []string{"grayscale", "threshold", "binarize", "morphology", "label", "render"}, stages)
	assert.NoError(t, ValidateResult(res))
}

func TestAnalyze_WorkersArePerPipeline(t *testing.T) {
	img := testutil.DefaultScene().Render()
	serial := newPipeline(t, NewBuilder().WithWorkers(1))
	wide := newPipeline(t, NewBuilder().WithWorkers(3))
	auto := newPipeline(t, NewBuilder())

	assert.Equal(t, 1, serial.Config().Workers)
	assert.Equal(t, 0, auto.Config().Workers)
	assert.Equal(t, runtime.GOMAXPROCS(0), raster.DefaultWorkers(), "building pipelines leaves the default alone")

	want, err := auto.Analyze(img)
	require.NoError(t, err)
	for _, p := range []*Pipeline{serial, wide} {
		got, err := p.Analyze(img)
		require.NoError(t, err)
		assert.Equal(t, want.Particles, got.Particles)
		assert.True(t, want.Labels.Equal(got.Labels))
		assert.Equal(t, want.Image.Pix, got.Image.Pix)
	}
}

func TestAnalyze_DarkParticles(t *testing.T) {
	img := testutil.DefaultScene().Inverted().Render()

	low, err := newPipeline(t, NewBuilder().WithForegroundIsLow(true)).Analyze(img)
	require.NoError(t, err)
	assert.Len(t, low.Particles, 4)

	inv, err := newPipeline(t, NewBuilder().WithInvert(true)).Analyze(img)
	require.NoError(t, err)
	require.Len(t, inv.Particles, 4)
	assert.Equal(t, low.Particles, inv.Particles)

	// Without either option the white background is one big particle. The
	// closing erodes it away from the image border.
	bg, err := newPipeline(t, NewBuilder()).Analyze(img)
	require.NoError(t, err)
	require.Len(t, bg.Particles, 1)
	assert.Equal(t, particle.Box{Min: image.Pt(2, 2), Max: image.Pt(77, 57)}, bg.Particles[0].BoundingBox)
}

func TestAnalyze_MinAreaFilter(t *testing.T) {
	s := testutil.DefaultScene()
	s.Speckles = []image.Point{{X: 70, Y: 5}, {X: 74, Y: 5}, {X: 70, Y: 20}}

	all, err := newPipeline(t, NewBuilder()).Analyze(s.Render())
	require.NoError(t, err)
	assert.Len(t, all.Particles, 7)

	res, err := newPipeline(t, NewBuilder().WithMinArea(2)).Analyze(s.Render())
	require.NoError(t, err)
	assert.Len(t, res.Particles, 4)
	assert.Equal(t, 3, res.Filtered)
	assert.Equal(t, raster.Background, res.Labels.At(70, 5), "filtered pixels are cleared")
	assert.Equal(t, render.Black, res.Image.RGBAAt(70, 20))

	// Labels keep their original values.
	labels := make([]int, len(res.Particles))
	for i, p := range res.Particles {
		labels[i] = p.Label
	}
	assert.NotEqual(t, []int{2, 3, 4, 5}, labels)
}

func TestAnalyze_FixedThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 3))
	for x := range 10 {
		img.SetGray(x, 1, color.Gray{Y: uint8(x * 25)})
	}
	p := newPipeline(t, NewBuilder().WithThreshold(100).WithMorphology(morphology.MorphNone, "", 0))
	res, err := p.Analyze(img)
	require.NoError(t, err)
	assert.False(t, res.AutoThreshold)
	assert.Equal(t, 100, res.Threshold)
	require.Len(t, res.Particles, 1)
	assert.Equal(t, 5, res.Particles[0].Area, "values 125..225 are above 100")
}

func TestAnalyzeRaster(t *testing.T) {
	r := raster.FromRows([][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 200, 200, 0, 0, 0},
		{0, 200, 200, 0, 90, 0},
		{0, 0, 0, 0, 0, 0},
	})
	orig := r.Clone()
	p := newPipeline(t, NewBuilder().WithThreshold(50).WithMorphology(morphology.MorphNone, "", 0).WithRender(false))
	res, err := p.AnalyzeRaster(r)
	require.NoError(t, err)
	assert.True(t, r.Equal(orig), "input must not change")
	assert.Nil(t, res.Image)
	assert.Nil(t, res.Mask)
	require.Len(t, res.Particles, 2)
	assert.Equal(t, 4, res.Particles[0].Area)
	assert.Equal(t, 1, res.Particles[1].Area)

	// Otsu separates the 200 block from both 0 and 90.
	auto := newPipeline(t, NewBuilder().WithMorphology(morphology.MorphNone, "", 0).WithRender(false))
	res, err = auto.AnalyzeRaster(r)
	require.NoError(t, err)
	assert.Equal(t, 90, res.Threshold)
	require.Len(t, res.Particles, 1)
	assert.Equal(t, 4, res.Particles[0].Area)

	rgb := raster.New(2, 1, raster.KindRGB)
	rgb.Pix[1] = 0xFFFFFF
	res, err = p.AnalyzeRaster(rgb)
	require.NoError(t, err)
	require.Len(t, res.Particles, 1)
	assert.Equal(t, image.Pt(1, 0), res.Particles[0].BoundingBox.Min)
}

func TestAnalyze_UniformImage(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	res, err := p.Analyze(testutil.CreateTestImage(20, 10, color.Black))
	require.NoError(t, err)
	assert.Empty(t, res.Particles)
	assert.Equal(t, 0, res.Threshold)
}

func TestAnalyze_Errors(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	_, err := p.Analyze(nil)
	assert.Error(t, err)
	_, err = p.Analyze(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	assert.Error(t, err)
	_, err = p.AnalyzeRaster(nil)
	assert.Error(t, err)
}

func TestResult_Summarize(t *testing.T) {
	res := &Result{
		Width:  10,
		Height: 10,
		Particles: []particle.Particle{
			{Label: 2, Area: 4},
			{Label: 3, Area: 10},
			{Label: 4, Area: 1},
		},
	}
	s := res.Summarize()
	assert.Equal(t, Summary{Count: 3, TotalArea: 15, MeanArea: 5, MinArea: 1, MaxArea: 10, AreaFraction: 0.15}, s)
	assert.Equal(t, Summary{}, (&Result{}).Summarize())
}
