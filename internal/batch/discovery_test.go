package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func discoveryTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "notes.txt", "a_overlay.png", "sub/c.png", "sub/deeper/d.tif"} {
		touch(t, filepath.Join(dir, name))
	}
	return dir
}

func TestDiscoverImageFiles(t *testing.T) {
	dir := discoveryTree(t)
	at := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(dir, n)
		}
		return out
	}

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{"flat", false, nil, nil, at("a.png", "b.jpg")},
		{"recursive", true, nil, nil, at("a.png", "b.jpg", "sub/c.png", "sub/deeper/d.tif")},
		{"include", true, []string{"*.png"}, nil, at("a.png", "sub/c.png")},
		{"exclude", true, nil, []string{"b*", "*.tif"}, at("a.png", "sub/c.png")},
		{"exclude wins", false, []string{"*.png"}, []string{"a*"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discoverImageFiles([]string{dir}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverImageFiles_ExplicitFiles(t *testing.T) {
	dir := discoveryTree(t)
	notes := filepath.Join(dir, "notes.txt")

	got, err := discoverImageFiles([]string{notes, filepath.Join(dir, "a.png")}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{notes, filepath.Join(dir, "a.png")}, got)

	got, err = discoverImageFiles([]string{notes}, false, nil, []string{"*.txt"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscoverImageFiles_Missing(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "missing")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchesAnyPattern(t *testing.T) {
	assert.True(t, matchesAnyPattern("/x/y/scan_01.png", []string{"scan_*"}))
	assert.False(t, matchesAnyPattern("/x/scan_01.png", []string{"/x/*"}))
	assert.False(t, matchesAnyPattern("a.png", nil))
}
