package screenshot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/painter"
)

type fakeCanvas struct {
	w, h   int
	pixels map[[2]int]painter.Color
}

func (f *fakeCanvas) Width() int  { return f.w }
func (f *fakeCanvas) Height() int { return f.h }
func (f *fakeCanvas) At(x, y int) painter.Color {
	if c, ok := f.pixels[[2]int{x, y}]; ok {
		return c
	}
	return painter.Color{}
}

func TestSaveWritesDecodablePNGOfCorrectSize(t *testing.T) {
	canvas := &fakeCanvas{w: 4, h: 3, pixels: map[[2]int]painter.Color{
		{1, 1}: {R: 255, G: 128, B: 0},
	}}
	w := NewWriter(canvas)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	require.NoError(t, w.Save(path, display.Snapshot{}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Equal(t, uint32(128), g>>8)
	assert.Equal(t, uint32(0), b>>8)
}

func TestSaveRejectsZeroSizedCanvas(t *testing.T) {
	w := NewWriter(&fakeCanvas{w: 0, h: 0})
	assert.Error(t, w.Save(filepath.Join(t.TempDir(), "out.png"), display.Snapshot{}))
}

func TestSaveRejectsNilSource(t *testing.T) {
	w := &Writer{}
	assert.Error(t, w.Save(filepath.Join(t.TempDir(), "out.png"), display.Snapshot{}))
}
