package pipeline

import (
	"context"
	"image"
	"testing"

	"github.com/MeKo-Tech/particles/internal/testutil"
)

func benchmarkPipeline(b *testing.B, builder *Builder) *Pipeline {
	b.Helper()
	p, err := builder.Build()
	if err != nil {
		b.Fatal(err)
	}
	return p
}

func BenchmarkAnalyze_DefaultScene(b *testing.B) {
	p := benchmarkPipeline(b, NewBuilder().WithRender(false))
	img := testutil.DefaultScene().Render()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := p.Analyze(img); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyze_WithOverlay(b *testing.B) {
	p := benchmarkPipeline(b, NewBuilder().WithRender(true))
	img := testutil.DefaultScene().Render()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := p.Analyze(img); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyzeImagesParallel(b *testing.B) {
	p := benchmarkPipeline(b, NewBuilder().WithRender(false).WithParallelWorkers(4))
	images := make([]image.Image, 16)
	for i := range images {
		images[i] = squares(i%5 + 1)
	}
	cfg := p.Config().Parallel
	for b.Loop() {
		if _, err := p.AnalyzeImagesParallel(context.Background(), images, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
