package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Disk is a filled circle of pixels with (x-cx)^2 + (y-cy)^2 <= r^2.
type Disk struct {
	Center image.Point `json:"center"`
	Radius int         `json:"radius"`
}

// Scene describes a synthetic image: rectangles and disks painted in
// Foreground over Background, plus isolated speckle pixels.
type Scene struct {
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Background color.Gray        `json:"background"`
	Foreground color.Gray        `json:"foreground"`
	Rects      []image.Rectangle `json:"rects,omitempty"`
	Disks      []Disk            `json:"disks,omitempty"`
	Speckles   []image.Point     `json:"speckles,omitempty"`
}

// DefaultScene returns an 80x60 scene with three rectangles and one disk,
// bright on black, spaced so that a diamond5 closing leaves every shape
// separate and the rectangles unchanged. In scan order the rectangles have
// areas 80, 100 and 80.
func DefaultScene() Scene {
	return Scene{
		Width:      80,
		Height:     60,
		Background: color.Gray{Y: 0},
		Foreground: color.Gray{Y: 255},
		Rects: []image.Rectangle{
			image.Rect(5, 5, 15, 13),
			image.Rect(25, 5, 45, 10),
			image.Rect(5, 30, 9, 50),
		},
		Disks: []Disk{{Center: image.Pt(60, 40), Radius: 8}},
	}
}

// Shapes returns the number of separate shapes including speckles.
func (s Scene) Shapes() int {
	return len(s.Rects) + len(s.Disks) + len(s.Speckles)
}

// Inverted swaps foreground and background colours.
func (s Scene) Inverted() Scene {
	s.Background, s.Foreground = s.Foreground, s.Background
	return s
}

// Render paints the scene into a new RGBA image.
func (s Scene) Render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: s.Background}, image.Point{}, draw.Src)
	fg := &image.Uniform{C: s.Foreground}
	for _, r := range s.Rects {
		draw.Draw(img, r, fg, image.Point{}, draw.Src)
	}
	for _, d := range s.Disks {
		r2 := d.Radius * d.Radius
		for y := d.Center.Y - d.Radius; y <= d.Center.Y+d.Radius; y++ {
			for x := d.Center.X - d.Radius; x <= d.Center.X+d.Radius; x++ {
				dx, dy := x-d.Center.X, y-d.Center.Y
				if dx*dx+dy*dy <= r2 {
					img.Set(x, y, s.Foreground)
				}
			}
		}
	}
	for _, p := range s.Speckles {
		img.Set(p.X, p.Y, s.Foreground)
	}
	return img
}

// CreateTestImage creates a uniform image with the specified dimensions and color.
func CreateTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// SaveImage saves an image as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)), "Failed to create directory for %s", path)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteScene renders s and saves it as dir/name.png, returning the path.
func WriteScene(t *testing.T, dir, name string, s Scene) string {
	t.Helper()
	path := filepath.Join(dir, name+".png")
	SaveImage(t, s.Render(), path)
	return path
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")
	return img
}

// CountColor returns the number of pixels of img equal to c.
func CountColor(img image.Image, c color.Color) int {
	want := color.RGBAModel.Convert(c)
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) == want {
				n++
			}
		}
	}
	return n
}
