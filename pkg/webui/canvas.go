package webui

import (
	"sync"

	"github.com/spettro-go/spettro/pkg/painter"
)

// Canvas is the concrete painter.Canvas/screenshot.PixelSource
// implementation owned by the web collaborator: an in-memory pixel
// buffer plus a dirty-rect callback the Server uses to push updates
// over the websocket.
type Canvas struct {
	mu     sync.RWMutex
	width  int
	height int
	pixels []painter.Color

	onDirty func(x0, y0, x1, y1 int)
}

// NewCanvas creates a width x height pixel buffer.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:  width,
		height: height,
		pixels: make([]painter.Color, width*height),
	}
}

// OnDirty registers the callback invoked after every MarkDirty call.
func (c *Canvas) OnDirty(fn func(x0, y0, x1, y1 int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDirty = fn
}

func (c *Canvas) Width() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width
}

func (c *Canvas) Height() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// SetPixel implements painter.Canvas.
func (c *Canvas) SetPixel(x, y int, col painter.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.pixels[y*c.width+x] = col
}

// At implements screenshot.PixelSource.
func (c *Canvas) At(x, y int) painter.Color {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return painter.Color{}
	}
	return c.pixels[y*c.width+x]
}

// MarkDirty implements painter.Canvas, notifying the registered
// callback so the Server can push the rect to connected clients.
func (c *Canvas) MarkDirty(x0, y0, x1, y1 int) {
	c.mu.RLock()
	fn := c.onDirty
	c.mu.RUnlock()
	if fn != nil {
		fn(x0, y0, x1, y1)
	}
}

// Resize reallocates the buffer, discarding prior contents. Called
// when the window is resized.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width = width
	c.height = height
	c.pixels = make([]painter.Color, width*height)
}

// rectRGB copies the given rect into a flat RGB byte slice for wire
// transmission, one (R,G,B) triple per pixel, row-major.
func (c *Canvas) rectRGB(x0, y0, x1, y1 int) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]byte, 0, (x1-x0+1)*(y1-y0+1)*3)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= c.width || y < 0 || y >= c.height {
				out = append(out, 0, 0, 0)
				continue
			}
			p := c.pixels[y*c.width+x]
			out = append(out, p.R, p.G, p.B)
		}
	}
	return out
}
