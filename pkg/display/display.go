// Package display holds the single owned display-state record and the
// immutable snapshot handed to workers and the overlay/painter packages.
package display

import "math"

// PlayState is the audio player's coarse playback state.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

func (p PlayState) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// WindowKind names a window function used by the FFT kernel.
type WindowKind int

const (
	Kaiser WindowKind = iota
	Dolph
	Nuttall
	Blackman
	Hann
)

var windowNames = [...]string{"kaiser", "dolph", "nuttall", "blackman", "hann"}

func (w WindowKind) String() string {
	if int(w) < 0 || int(w) >= len(windowNames) {
		return "unknown"
	}
	return windowNames[w]
}

// CycleWindow returns the next (dir > 0) or previous (dir < 0) window kind,
// wrapping around.
func (w WindowKind) CycleWindow(dir int) WindowKind {
	n := len(windowNames)
	next := (int(w) + dir) % n
	if next < 0 {
		next += n
	}
	return WindowKind(next)
}

// ColorMap names a color mapping used by the painter.
type ColorMap int

const (
	Heat ColorMap = iota
	Gray
	Print
)

var colorMapNames = [...]string{"heat", "gray", "print"}

func (c ColorMap) String() string {
	if int(c) < 0 || int(c) >= len(colorMapNames) {
		return "unknown"
	}
	return colorMapNames[c]
}

// State is the single mutable display-state record, owned by one
// goroutine (see pkg/control). All other packages read it only through
// an immutable Snapshot.
type State struct {
	Playing PlayState

	DispTime float64
	MinFreq  float64
	MaxFreq  float64
	FFTFreq  float64
	PPSec    float64

	WindowKind WindowKind
	ColorMap   ColorMap
	DynRange   float64
	LogMax     float64

	ShowFreqAxes bool
	ShowTimeAxes bool
	PianoLines   bool
	StaffLines   bool
	GuitarLines  bool

	LeftBarTime  *float64
	RightBarTime *float64
	BeatsPerBar  int

	SoftVol    float64
	Fullscreen bool

	Width  int
	Height int
}

// Snapshot is an immutable copy of State, safe to share across
// goroutines without synchronization.
type Snapshot struct {
	Playing PlayState

	DispTime float64
	MinFreq  float64
	MaxFreq  float64
	FFTFreq  float64
	PPSec    float64

	WindowKind WindowKind
	ColorMap   ColorMap
	DynRange   float64
	LogMax     float64

	ShowFreqAxes bool
	ShowTimeAxes bool
	PianoLines   bool
	StaffLines   bool
	GuitarLines  bool

	LeftBarTime  *float64
	RightBarTime *float64
	BeatsPerBar  int

	SoftVol    float64
	Fullscreen bool

	Width  int
	Height int
}

// Snapshot copies State into an immutable value, deep-copying the
// optional bar-time pointers so later mutation of State cannot be
// observed through a previously-taken Snapshot.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Playing:      s.Playing,
		DispTime:     s.DispTime,
		MinFreq:      s.MinFreq,
		MaxFreq:      s.MaxFreq,
		FFTFreq:      s.FFTFreq,
		PPSec:        s.PPSec,
		WindowKind:   s.WindowKind,
		ColorMap:     s.ColorMap,
		DynRange:     s.DynRange,
		LogMax:       s.LogMax,
		ShowFreqAxes: s.ShowFreqAxes,
		ShowTimeAxes: s.ShowTimeAxes,
		PianoLines:   s.PianoLines,
		StaffLines:   s.StaffLines,
		GuitarLines:  s.GuitarLines,
		BeatsPerBar:  s.BeatsPerBar,
		SoftVol:      s.SoftVol,
		Fullscreen:   s.Fullscreen,
		Width:        s.Width,
		Height:       s.Height,
	}
	if s.LeftBarTime != nil {
		v := *s.LeftBarTime
		snap.LeftBarTime = &v
	}
	if s.RightBarTime != nil {
		v := *s.RightBarTime
		snap.RightBarTime = &v
	}
	return snap
}

// SecPP is seconds per pixel column, the reciprocal of PPSec.
func (s Snapshot) SecPP() float64 { return 1.0 / s.PPSec }

// DispOffset is the pixel column of the screen's center.
func (s Snapshot) DispOffset() int { return s.Width / 2 }

// SetBarLines applies the spec's bar-line clearing invariant: if both
// bar times are set and quantize to the same column, both are cleared.
func (s *State) SetBarLines(left, right *float64) {
	if left != nil && right != nil {
		lc := int(math.Round(*left / s.secPPOrOne()))
		rc := int(math.Round(*right / s.secPPOrOne()))
		if lc == rc {
			s.LeftBarTime = nil
			s.RightBarTime = nil
			return
		}
	}
	s.LeftBarTime = left
	s.RightBarTime = right
}

func (s *State) secPPOrOne() float64 {
	if s.PPSec <= 0 {
		return 1
	}
	return 1.0 / s.PPSec
}

// ClearBars clears both bar-line markers.
func (s *State) ClearBars() {
	s.LeftBarTime = nil
	s.RightBarTime = nil
}
