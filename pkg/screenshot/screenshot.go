// Package screenshot encodes the current canvas to a PNG file, the
// on-disk image collaborator named out of scope in spec.md §1.
package screenshot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/painter"
)

// PixelSource reads back pixels from whatever owns the canvas buffer
// (pkg/webui's concrete Canvas). The painter only ever writes pixels;
// this is the read side needed to dump them to a file.
type PixelSource interface {
	Width() int
	Height() int
	At(x, y int) painter.Color
}

// Writer saves a PixelSource's current contents to path as a PNG.
type Writer struct {
	Source PixelSource
}

// NewWriter wraps source for use as a pkg/control.Screenshotter.
func NewWriter(source PixelSource) *Writer {
	return &Writer{Source: source}
}

// Save implements pkg/control.Screenshotter. snap is unused: the image
// size and the pixels both come from the PixelSource, not the display
// state.
func (w *Writer) Save(path string, snap display.Snapshot) error {
	if w.Source == nil {
		return fmt.Errorf("screenshot: no pixel source configured")
	}

	width, height := w.Source.Width(), w.Source.Height()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("screenshot: canvas has zero size")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := w.Source.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot: create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("screenshot: encode %s: %w", path, err)
	}
	return nil
}
