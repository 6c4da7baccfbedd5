package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spettro-go/spettro/pkg/display"
)

type fakePlayer struct{ t float64 }

func (f *fakePlayer) GetPlayingTime() float64 { return f.t }

type fakeReprioritizer struct{ lastCol int }

func (f *fakeReprioritizer) Reprioritize(centerCol int) { f.lastCol = centerCol }

type fakeRepainter struct {
	shifted    []int
	playheadAt []float64
}

func (f *fakeRepainter) ShiftAndRepaint(shiftCols int, snap display.Snapshot) {
	f.shifted = append(f.shifted, shiftCols)
}
func (f *fakeRepainter) RepaintPlayhead(snap display.Snapshot) {
	f.playheadAt = append(f.playheadAt, snap.DispTime)
}

func TestTickShiftsDispTimeTowardPlayhead(t *testing.T) {
	state := display.Snapshot{DispTime: 1.0, PPSec: 25, Playing: display.Playing, Width: 800}
	player := &fakePlayer{t: 2.0}
	repr := &fakeReprioritizer{}
	rep := &fakeRepainter{}

	var dispTime = state.DispTime
	c := New(25, player, repr, rep,
		func() display.Snapshot { s := state; s.DispTime = dispTime; return s },
		func(t float64) { dispTime = t })

	c.Tick()

	assert.InDelta(t, 2.0, dispTime, state.SecPP())
	assert.Len(t, rep.shifted, 1)
	assert.Len(t, rep.playheadAt, 1)
}

func TestTickDoesNothingWhenNotPlaying(t *testing.T) {
	state := display.Snapshot{DispTime: 1.0, PPSec: 25, Playing: display.Paused, Width: 800}
	player := &fakePlayer{t: 50.0}
	rep := &fakeRepainter{}

	c := New(25, player, &fakeReprioritizer{}, rep,
		func() display.Snapshot { return state },
		func(t float64) { state.DispTime = t })

	c.Tick()
	assert.Empty(t, rep.shifted)
	assert.Empty(t, rep.playheadAt)
}

func TestTickNoShiftWhenAlreadyAligned(t *testing.T) {
	state := display.Snapshot{DispTime: 2.0, PPSec: 25, Playing: display.Playing, Width: 800}
	player := &fakePlayer{t: 2.0}
	rep := &fakeRepainter{}

	c := New(25, player, &fakeReprioritizer{}, rep,
		func() display.Snapshot { return state },
		func(t float64) { state.DispTime = t })

	c.Tick()
	assert.Empty(t, rep.shifted)
	assert.Len(t, rep.playheadAt, 1)
}

func TestSignalTickCoalescesConcurrentTicks(t *testing.T) {
	state := display.Snapshot{DispTime: 0, PPSec: 25, Playing: display.Playing, Width: 800}
	player := &fakePlayer{t: 0}
	rep := &fakeRepainter{}

	c := New(25, player, &fakeReprioritizer{}, rep,
		func() display.Snapshot { return state },
		func(t float64) { state.DispTime = t })

	c.pending = true // simulate a tick already in flight
	c.signalTick()   // should be dropped
	assert.Empty(t, rep.playheadAt)
}
