// Package overlay computes the row (piano/staff/guitar) and column
// (bar line/playhead) overlays that the painter blends on top of the
// base spectrogram pixels.
package overlay

import (
	"math"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/notefreq"
	"github.com/spettro-go/spettro/pkg/painter"
)

var (
	white = painter.Color{R: 255, G: 255, B: 255}
	black = painter.Color{R: 0, G: 0, B: 0}
	green = painter.Color{R: 0, G: 200, B: 0}
	barColor = painter.Color{R: 255, G: 255, B: 255}
	tickColor = painter.Color{R: 160, G: 160, B: 160}
)

// pianoWhiteKey reports whether the semitone index (0=C) within an
// octave is a white piano key.
func pianoWhiteKey(semitone int) bool {
	switch semitone {
	case 1, 3, 6, 8, 10: // C#, D#, F#, G#, A#
		return false
	default:
		return true
	}
}

var staffFreqs = buildStaffFreqs()

func buildStaffFreqs() []float64 {
	// Treble clef lines E4 G4 B4 D5 F5; bass clef lines G2 B2 D3 F3 A3.
	names := []string{"E4", "G4", "B4", "D5", "F5", "G2", "B2", "D3", "F3", "A3"}
	out := make([]float64, 0, len(names))
	for _, n := range names {
		f, err := notefreq.NoteNameToFreq(n)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

var guitarFreqs = buildGuitarFreqs()

func buildGuitarFreqs() []float64 {
	names := []string{"E2", "A2", "D3", "G3", "B3", "E4"}
	out := make([]float64, 0, len(names))
	for _, n := range names {
		f, err := notefreq.NoteNameToFreq(n)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Engine implements painter.Overlay, applying row and column overlays
// in priority order: column overlays (bar lines, playhead) override
// row overlays (piano/staff/guitar), which override the base pixel.
type Engine struct{}

// Apply mutates colors in place for column x, rows [y0, y1].
func (e *Engine) Apply(x, y0, y1 int, snap display.Snapshot, colors []painter.Color) {
	if snap.PianoLines {
		applyPianoLines(y0, y1, snap, colors)
	}
	if snap.StaffLines {
		applyFrequencyLines(y0, y1, snap, colors, staffFreqs, black)
	}
	if snap.GuitarLines {
		applyFrequencyLines(y0, y1, snap, colors, guitarFreqs, black)
	}

	applyBarLine(x, snap, colors)
	applyPlayhead(x, snap, colors)
}

func applyPianoLines(y0, y1 int, snap display.Snapshot, colors []painter.Color) {
	for y := y0; y <= y1; y++ {
		freq := painter.RowToFreq(y, y0, y1, snap.MinFreq, snap.MaxFreq)
		midi := int(math.Round(69 + 12*math.Log2(freq/440.0)))
		semitone := ((midi % 12) + 12) % 12
		if pianoWhiteKey(semitone) {
			colors[y-y0] = white
		} else {
			colors[y-y0] = black
		}
	}
}

// applyFrequencyLines colors rows whose mapped frequency is within half
// a row's frequency span of one of freqs.
func applyFrequencyLines(y0, y1 int, snap display.Snapshot, colors []painter.Color, freqs []float64, c painter.Color) {
	for y := y0; y <= y1; y++ {
		freq := painter.RowToFreq(y, y0, y1, snap.MinFreq, snap.MaxFreq)
		nextFreq := painter.RowToFreq(y+1, y0, y1, snap.MinFreq, snap.MaxFreq)
		halfSpan := math.Abs(freq-nextFreq) / 2
		for _, lineFreq := range freqs {
			if math.Abs(freq-lineFreq) <= halfSpan {
				colors[y-y0] = c
				break
			}
		}
	}
}

// applyBarLine draws a bar line at x if x's column coincides with a
// modular bar boundary per spec.md's left/right bar time definition,
// with half-height subdivision ticks when beats_per_bar > 1 (resolved
// Open Question, see DESIGN.md).
func applyBarLine(x int, snap display.Snapshot, colors []painter.Color) {
	if snap.LeftBarTime == nil || snap.RightBarTime == nil {
		return
	}
	secpp := snap.SecPP()
	leftCol := notefreq.PieceColumn(*snap.LeftBarTime, secpp)
	rightCol := notefreq.PieceColumn(*snap.RightBarTime, secpp)
	period := rightCol - leftCol
	if period == 0 {
		return
	}
	if period < 0 {
		period = -period
	}

	col := notefreq.PieceColumn(snap.DispTime, secpp) + (x - snap.DispOffset())
	offset := ((col - leftCol) % period + period) % period

	height := len(colors)
	if offset == 0 {
		for i := range colors {
			colors[i] = barColor
		}
		return
	}

	beats := snap.BeatsPerBar
	if beats > 1 {
		subPeriod := period / beats
		if subPeriod > 0 && offset%subPeriod == 0 {
			for i := height / 4; i < height*3/4; i++ {
				colors[i] = tickColor
			}
		}
	}
}

// applyPlayhead draws the green playhead column at disp_offset
// whenever playback is not stopped.
func applyPlayhead(x int, snap display.Snapshot, colors []painter.Color) {
	if snap.Playing == display.Stopped {
		return
	}
	if x != snap.DispOffset() {
		return
	}
	for i := range colors {
		colors[i] = green
	}
}
