package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spettro-go/spettro/pkg/display"
)

type fakeSource struct {
	sampleRate int
	channels   int
	frames     int64
}

func (f *fakeSource) Read(startFrame int64, frameCount int) []float64 { return make([]float64, frameCount*f.channels) }
func (f *fakeSource) SampleRate() int                                 { return f.sampleRate }
func (f *fakeSource) Channels() int                                   { return f.channels }
func (f *fakeSource) LengthFrames() int64                             { return f.frames }

func TestInitialStateIsStopped(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	assert.Equal(t, display.Stopped, p.State())
}

func TestPlayTransitionsToPlaying(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	require.NoError(t, p.Play())
	assert.Equal(t, display.Playing, p.State())
}

func TestPauseFreezesPlayingTime(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	require.NoError(t, p.Play())
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Pause())
	t1 := p.GetPlayingTime()
	time.Sleep(10 * time.Millisecond)
	t2 := p.GetPlayingTime()
	assert.Equal(t, t1, t2)
	assert.Equal(t, display.Paused, p.State())
}

func TestSetPlayingTimeFromStoppedBecomesPaused(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	require.NoError(t, p.SetPlayingTime(3.0))
	assert.Equal(t, display.Paused, p.State())
	assert.InDelta(t, 3.0, p.GetPlayingTime(), 1e-6)
}

func TestSetPlayingTimeRejectsNegative(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	assert.Error(t, p.SetPlayingTime(-1))
}

func TestStopAutoRequiresPlaying(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	assert.Error(t, p.StopAuto())

	require.NoError(t, p.Play())
	require.NoError(t, p.StopAuto())
	assert.Equal(t, display.Stopped, p.State())
	assert.InDelta(t, 10.0, p.GetPlayingTime(), 1e-6)
}

func TestSoftVolDefaultsToUnityAndRejectsNonPositive(t *testing.T) {
	p := NewMockPlayer(&fakeSource{sampleRate: 44100, channels: 1, frames: 441000})
	p.SetSoftVol(0)
	assert.Equal(t, 1.0, p.softVol)
	p.SetSoftVol(2.0)
	assert.Equal(t, 2.0, p.softVol)
}
