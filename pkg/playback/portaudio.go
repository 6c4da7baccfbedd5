package playback

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/spettro-go/spettro/pkg/display"
)

// PortAudioPlayer drives real audio output via portaudio, pulling
// frames from a Source and scaling them by softvol.
type PortAudioPlayer struct {
	basePlayer
	stream *portaudio.Stream
	mu     sync.Mutex
}

// NewPortAudioPlayer opens a default output stream for source and
// returns a ready-to-Play PortAudioPlayer.
func NewPortAudioPlayer(source Source) (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("playback: portaudio init: %w", err)
	}

	p := &PortAudioPlayer{basePlayer: newBasePlayer(source)}

	channels := source.Channels()
	sampleRate := float64(source.SampleRate())

	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, portaudio.FramesPerBufferDefault, p.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("playback: open stream: %w", err)
	}
	p.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("playback: start stream: %w", err)
	}

	return p, nil
}

// callback fills out with the next block of frames starting at the
// player's current playhead, scaled by softvol. The playhead itself
// advances via basePlayer's wall-clock tracking (currentTimeLocked),
// not by counting frames here, so the two don't double-advance it.
// Silence is written when paused or stopped so the device keeps a
// clean clock.
func (p *PortAudioPlayer) callback(out []int16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := p.source.Channels()
	frameCount := len(out) / channels

	if p.State() != display.Playing {
		for i := range out {
			out[i] = 0
		}
		return
	}

	startFrame := int64(p.GetPlayingTime() * float64(p.source.SampleRate()))
	samples := p.source.Read(startFrame, frameCount)

	p.basePlayer.mu.Lock()
	vol := p.basePlayer.softVol
	p.basePlayer.mu.Unlock()

	for i, s := range samples {
		out[i] = int16(clampSample(s*vol) * 32767)
	}

	if p.GetPlayingTime() >= p.lengthSeconds() {
		_ = p.StopAuto()
	}
}

func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Close stops the stream and releases portaudio resources.
func (p *PortAudioPlayer) Close() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
