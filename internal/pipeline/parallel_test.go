package pipeline

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/particle"
	"github.com/MeKo-Tech/particles/internal/testutil"
)

// squares renders n separate 3x3 bright squares on black.
func squares(n int) image.Image {
	s := testutil.Scene{Width: 8*n + 8, Height: 12}
	s.Foreground.Y = 255
	for i := range n {
		s.Rects = append(s.Rects, image.Rect(4+8*i, 4, 7+8*i, 7))
	}
	return s.Render()
}

type recordingProgress struct {
	mu        sync.Mutex
	total     int
	progress  []int
	errors    []int
	completed bool
}

func (r *recordingProgress) OnStart(total int) { r.total = total }

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	r.progress = append(r.progress, current)
	r.mu.Unlock()
}

func (r *recordingProgress) OnComplete() { r.completed = true }

func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	r.errors = append(r.errors, index)
	r.mu.Unlock()
}

func TestDefaultParallelConfig(t *testing.T) {
	config := DefaultParallelConfig()
	assert.Positive(t, config.MaxWorkers)
	assert.Nil(t, config.ProgressCallback)
	assert.Nil(t, config.ErrorHandler)
}

func TestAnalyzeImagesParallel_EmptyInput(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	results, err := p.AnalyzeImagesParallel(context.Background(), nil, DefaultParallelConfig())
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "no images provided")
}

func TestAnalyzeImagesParallel_NilPipeline(t *testing.T) {
	var p *Pipeline
	_, err := p.AnalyzeImagesParallel(context.Background(), []image.Image{squares(1)}, DefaultParallelConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline not initialized")
}

func TestAnalyzeImagesParallel_PreservesOrder(t *testing.T) {
	p := newPipeline(t, NewBuilder().WithRender(false))
	var images []image.Image
	for n := 1; n <= 12; n++ {
		images = append(images, squares(n))
	}

	progress := &recordingProgress{}
	config := ParallelConfig{MaxWorkers: 4, ProgressCallback: progress}
	results, err := p.AnalyzeImagesParallel(context.Background(), images, config)
	require.NoError(t, err)
	require.Len(t, results, len(images))
	for i, res := range results {
		require.NotNil(t, res)
		assert.Lenf(t, res.Particles, i+1, "image %d", i)
	}

	assert.Equal(t, 12, progress.total)
	assert.Len(t, progress.progress, 12)
	assert.Equal(t, 12, progress.progress[len(progress.progress)-1])
	assert.True(t, progress.completed)
	assert.Empty(t, progress.errors)
}

func TestAnalyzeImagesParallel_MatchesSequential(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	images := []image.Image{squares(2), testutil.DefaultScene().Render(), squares(5)}

	seq, err := p.AnalyzeImages(images)
	require.NoError(t, err)
	par, err := p.AnalyzeImagesParallel(context.Background(), images, ParallelConfig{MaxWorkers: 3})
	require.NoError(t, err)
	for i := range images {
		assert.Equal(t, seq[i].Particles, par[i].Particles)
		assert.Equal(t, seq[i].Image.Pix, par[i].Image.Pix)
	}
}

func TestAnalyzeImagesParallel_PartialFailure(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	images := []image.Image{squares(1), image.NewRGBA(image.Rect(0, 0, 0, 0)), squares(2)}

	var handled []int
	progress := &recordingProgress{}
	config := ParallelConfig{
		MaxWorkers:       2,
		ProgressCallback: progress,
		ErrorHandler:     func(i int, _ error) { handled = append(handled, i) },
	}
	results, err := p.AnalyzeImagesParallel(context.Background(), images, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Equal(t, []int{1}, handled)
	assert.Equal(t, []int{1}, progress.errors)
}

func TestAnalyzeImagesParallel_CancelledBeforeStart(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.AnalyzeImagesParallel(ctx, []image.Image{squares(1), squares(2)}, ParallelConfig{MaxWorkers: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestAnalyzeImagesParallel_CancelStopsDispatch(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	images := make([]image.Image, 500)
	for i := range images {
		images[i] = testutil.DefaultScene().Render()
	}
	start := time.Now()
	results, err := p.AnalyzeImagesParallel(ctx, images, ParallelConfig{MaxWorkers: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, results)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestAnalyzeFilesParallel(t *testing.T) {
	dir := t.TempDir()
	fixtures := testutil.WriteSampleFixtures(t, dir)
	paths := make([]string, 0, len(fixtures)+1)
	for _, f := range fixtures {
		paths = append(paths, filepath.Join(dir, f.InputFile))
	}
	paths = append(paths, filepath.Join(dir, "missing.png"))

	p := newPipeline(t, NewBuilder().WithForegroundIsLow(false))
	results, err := p.AnalyzeFilesParallel(context.Background(), paths, ParallelConfig{MaxWorkers: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 3")
	require.Len(t, results, 4)
	assert.Nil(t, results[3])

	assert.Equal(t, paths[0], results[0].Source)
	assert.Len(t, results[0].Particles, fixtures[0].Particles)
	assert.Len(t, results[1].Particles, fixtures[1].Particles)

	_, err = p.AnalyzeFilesParallel(context.Background(), nil, DefaultParallelConfig())
	assert.Error(t, err)
}

func TestAnalyzeFile_Error(t *testing.T) {
	p := newPipeline(t, NewBuilder())
	_, err := p.AnalyzeFile(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestCalculateParallelStats(t *testing.T) {
	results := []*Result{
		{Particles: make([]particle.Particle, 3)},
		nil,
		{Particles: make([]particle.Particle, 1)},
	}
	stats := CalculateParallelStats(results, 2*time.Second, 4)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.ProcessedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Equal(t, 4, stats.TotalParticles)
	assert.Equal(t, 4, stats.WorkerCount)
	assert.Equal(t, time.Second, stats.AveragePerImage)
	assert.InDelta(t, 1.0, stats.ThroughputPerSec, 1e-9)

	empty := CalculateParallelStats(nil, 0, 1)
	assert.Zero(t, empty.ThroughputPerSec)
}
