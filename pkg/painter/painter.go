// Package painter turns cached FFT columns into pixel colors: the dB
// to color-map pipeline, plus the repaint entrypoints that tie the
// result cache and scheduler to a canvas.
package painter

import (
	"math"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/dspwin"
	"github.com/spettro-go/spettro/pkg/resultcache"
)

// Color is a 24-bit RGB pixel.
type Color struct {
	R, G, B uint8
}

// Canvas is the drawing surface the painter writes into. A concrete
// implementation (pkg/webui) owns the actual pixel buffer and any
// gui_lock-equivalent serialization; the painter only calls SetPixel
// and MarkDirty, holding no lock across more than one column.
type Canvas interface {
	SetPixel(x, y int, c Color)
	Width() int
	Height() int
	MarkDirty(x0, y0, x1, y1 int)
}

// Overlay lets pkg/overlay override specific pixels of a column after
// the base spectrogram colors are computed. Column overlays take
// priority over row overlays and the base pixel, per spec.md §4.9.
type Overlay interface {
	Apply(x, y0, y1 int, snap display.Snapshot, colors []Color)
}

// Requester is the subset of pkg/scheduler.Scheduler the painter uses
// to ask for missing columns.
type Requester interface {
	Request(key resultcache.Key, pieceCol int)
}

var backgroundColor = Color{0, 0, 0}

// Painter assembles pixel columns from cached FFT results.
type Painter struct {
	Canvas      Canvas
	Cache       *resultcache.Cache
	Scheduler   Requester
	Overlay     Overlay
	AudioLength float64 // seconds; columns outside [0, AudioLength] are background
	SampleRate  int     // the open audio file's sample rate, for speclen derivation
}

// RepaintColumn paints pixel column x for rows [y0, y1]. On a cache
// miss it requests the column from the scheduler and paints background
// for now; fromScratch forces full recomputation of every row even if
// the column is unchanged, matching spec.md's from-scratch/incremental
// distinction (incremental reuse happens one layer up, at the canvas
// scroll step, not here).
func (p *Painter) RepaintColumn(x, y0, y1 int, fromScratch bool, snap display.Snapshot) {
	t := snap.DispTime + float64(x-snap.DispOffset())*snap.SecPP()

	colors := make([]Color, y1-y0+1)
	if t < 0 || t > p.AudioLength {
		for i := range colors {
			colors[i] = backgroundColor
		}
	} else {
		speclen := dspwin.ComputeSpeclen(p.SampleRate, snap.FFTFreq)
		key := resultcache.Key{
			ColumnTime: resultcache.QuantizeColumnTime(t, snap.SecPP()),
			Speclen:    speclen,
			Window:     snap.WindowKind,
		}
		column, ok := p.Cache.Lookup(key)
		if !ok {
			if p.Scheduler != nil {
				p.Scheduler.Request(key, pieceColumn(t, snap.SecPP()))
			}
			for i := range colors {
				colors[i] = backgroundColor
			}
		} else {
			for y := y0; y <= y1; y++ {
				colors[y-y0] = p.columnPixel(column, y, y0, y1, snap)
			}
		}
	}

	if p.Overlay != nil {
		p.Overlay.Apply(x, y0, y1, snap, colors)
	}

	for y := y0; y <= y1; y++ {
		p.Canvas.SetPixel(x, y, colors[y-y0])
	}
	p.Canvas.MarkDirty(x, y0, x, y1)
}

// RepaintColumns repaints every column in [x0, x1].
func (p *Painter) RepaintColumns(x0, x1, y0, y1 int, fromScratch bool, snap display.Snapshot) {
	for x := x0; x <= x1; x++ {
		p.RepaintColumn(x, y0, y1, fromScratch, snap)
	}
	p.Canvas.MarkDirty(x0, y0, x1, y1)
}

// RepaintDisplay repaints the entire visible canvas.
func (p *Painter) RepaintDisplay(fromScratch bool, snap display.Snapshot) {
	p.RepaintColumns(0, p.Canvas.Width()-1, 0, p.Canvas.Height()-1, fromScratch, snap)
}

// ShiftAndRepaint implements pkg/clock.ShiftRepainter: rather than
// blitting existing pixel data sideways (the Canvas interface has no
// such primitive), it repaints just the strip of columns the scroll
// newly exposed, per spec.md §4.7 steps 2 and 4.
func (p *Painter) ShiftAndRepaint(shiftCols int, snap display.Snapshot) {
	if shiftCols == 0 {
		return
	}
	width := p.Canvas.Width()
	height := p.Canvas.Height()
	n := shiftCols
	if n < 0 {
		n = -n
	}
	if n > width {
		n = width
	}
	if shiftCols > 0 {
		p.RepaintColumns(width-n, width-1, 0, height-1, false, snap)
	} else {
		p.RepaintColumns(0, n-1, 0, height-1, false, snap)
	}
}

// RepaintPlayhead implements pkg/clock.ShiftRepainter: redraws just the
// screen-center column, where the playhead overlay line is drawn.
func (p *Painter) RepaintPlayhead(snap display.Snapshot) {
	p.RepaintColumn(snap.DispOffset(), 0, p.Canvas.Height()-1, false, snap)
}

// columnPixel maps pixel row y to a color by converting its
// logarithmic frequency to an interpolated, clamped, normalized dB
// value and then through the active color map.
func (p *Painter) columnPixel(column *resultcache.Column, y, y0, y1 int, snap display.Snapshot) Color {
	freq := RowToFreq(y, y0, y1, snap.MinFreq, snap.MaxFreq)
	mag := interpolateMagnitude(column.Magnitudes, freq, column.SampleRate)

	clamped := math.Max(snap.LogMax-snap.DynRange, math.Min(snap.LogMax, mag))
	normalized := (clamped - (snap.LogMax - snap.DynRange)) / snap.DynRange

	return ApplyColorMap(snap.ColorMap, normalized)
}

// RowToFreq maps pixel row y within [y0, y1] to a frequency,
// logarithmically interpolated so the top row is maxFreq and the
// bottom row is minFreq.
func RowToFreq(y, y0, y1 int, minFreq, maxFreq float64) float64 {
	if y1 == y0 {
		return maxFreq
	}
	frac := float64(y-y0) / float64(y1-y0)
	logMin := math.Log(minFreq)
	logMax := math.Log(maxFreq)
	return math.Exp(logMax - frac*(logMax-logMin))
}

// interpolateMagnitude linearly interpolates the dB magnitude at freq
// between the two adjacent FFT bins.
func interpolateMagnitude(magnitudes []float64, freq float64, sampleRate int) float64 {
	speclen := len(magnitudes) - 1
	binHz := float64(sampleRate) / float64(2*speclen)
	bin := freq / binHz

	lo := int(math.Floor(bin))
	hi := lo + 1
	frac := bin - float64(lo)

	if lo < 0 {
		lo, hi, frac = 0, 0, 0
	}
	if lo >= len(magnitudes) {
		lo = len(magnitudes) - 1
	}
	if hi >= len(magnitudes) {
		hi = len(magnitudes) - 1
	}
	return magnitudes[lo]*(1-frac) + magnitudes[hi]*frac
}

func pieceColumn(t, secpp float64) int {
	return int(math.Round(t / secpp))
}
