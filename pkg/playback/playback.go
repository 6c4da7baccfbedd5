// Package playback drives audio output through a small Player
// interface, the same way the teacher's HardwareManager abstracts its
// AudioInterface: one real backend (pkg/playback's portaudio-backed
// implementation) and one no-op mock for environments without sound.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/spettro-go/spettro/pkg/display"
)

// Player is the audio output state machine of spec.md §4.6.
type Player interface {
	Play() error
	Pause() error
	StopAuto() error
	SetPlayingTime(t float64) error
	GetPlayingTime() float64
	SetSoftVol(v float64)
	State() display.PlayState
	Close() error
}

// Source supplies the frames the player mixes to the audio device.
type Source interface {
	Read(startFrame int64, frameCount int) []float64
	SampleRate() int
	Channels() int
	LengthFrames() int64
}

// basePlayer implements the Stopped/Playing/Paused state machine and
// playhead bookkeeping shared by every backend; concrete backends
// embed it and only supply the actual audio device push/pull.
type basePlayer struct {
	mu          sync.Mutex
	state       display.PlayState
	playingTime float64
	softVol     float64
	startedWall time.Time
	source      Source
}

func newBasePlayer(source Source) basePlayer {
	return basePlayer{state: display.Stopped, softVol: 1.0, source: source}
}

func (b *basePlayer) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == display.Playing {
		return nil
	}
	b.startedWall = time.Now()
	b.state = display.Playing
	return nil
}

func (b *basePlayer) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != display.Playing {
		return nil
	}
	b.playingTime = b.currentTimeLocked()
	b.state = display.Paused
	return nil
}

func (b *basePlayer) StopAuto() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != display.Playing {
		return fmt.Errorf("playback: stop_auto called while not playing")
	}
	b.playingTime = b.lengthSeconds()
	b.state = display.Stopped
	return nil
}

func (b *basePlayer) SetPlayingTime(t float64) error {
	if t < 0 {
		return fmt.Errorf("playback: negative playing time %v", t)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playingTime = t
	b.startedWall = time.Now()
	if b.state == display.Stopped {
		b.state = display.Paused
	}
	return nil
}

func (b *basePlayer) GetPlayingTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentTimeLocked()
}

func (b *basePlayer) currentTimeLocked() float64 {
	if b.state != display.Playing {
		return b.playingTime
	}
	return b.playingTime + time.Since(b.startedWall).Seconds()
}

func (b *basePlayer) lengthSeconds() float64 {
	if b.source == nil || b.source.SampleRate() == 0 {
		return 0
	}
	return float64(b.source.LengthFrames()) / float64(b.source.SampleRate())
}

func (b *basePlayer) SetSoftVol(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v <= 0 {
		v = 1.0
	}
	b.softVol = v
}

func (b *basePlayer) State() display.PlayState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
