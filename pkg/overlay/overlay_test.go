package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/painter"
)

func baseSnap() display.Snapshot {
	return display.Snapshot{
		DispTime: 0,
		MinFreq:  20,
		MaxFreq:  8000,
		PPSec:    25,
		Width:    800,
		BeatsPerBar: 1,
	}
}

func TestPlayheadOverridesColumnAtDispOffset(t *testing.T) {
	e := &Engine{}
	snap := baseSnap()
	snap.Playing = display.Playing
	colors := make([]painter.Color, 10)

	e.Apply(snap.DispOffset(), 0, 9, snap, colors)
	for _, c := range colors {
		assert.Equal(t, green, c)
	}
}

func TestPlayheadAbsentWhenStopped(t *testing.T) {
	e := &Engine{}
	snap := baseSnap()
	snap.Playing = display.Stopped
	colors := make([]painter.Color, 10)
	original := colors[0]

	e.Apply(snap.DispOffset(), 0, 9, snap, colors)
	assert.Equal(t, original, colors[0])
}

func TestBarLineDrawsAtModularColumn(t *testing.T) {
	e := &Engine{}
	snap := baseSnap()
	left := 0.0
	right := 1.0 // period = 25 columns at secpp=0.04
	snap.LeftBarTime = &left
	snap.RightBarTime = &right

	colors := make([]painter.Color, 10)
	leftScreenX := snap.DispOffset() // disp_time=0 means column 0 is at disp_offset
	e.Apply(leftScreenX, 0, 9, snap, colors)
	assert.Equal(t, barColor, colors[0])
}

func TestPianoLinesColorWhiteAndBlackKeys(t *testing.T) {
	e := &Engine{}
	snap := baseSnap()
	snap.PianoLines = true

	colors := make([]painter.Color, 200)
	e.Apply(0, 0, 199, snap, colors)

	seenWhite, seenBlack := false, false
	for _, c := range colors {
		if c == white {
			seenWhite = true
		}
		if c == black {
			seenBlack = true
		}
	}
	assert.True(t, seenWhite)
	assert.True(t, seenBlack)
}
