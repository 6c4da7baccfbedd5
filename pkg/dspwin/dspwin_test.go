package dspwin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spettro-go/spettro/pkg/display"
)

func TestComputeSpeclenIsPowerOfTwo(t *testing.T) {
	speclen := ComputeSpeclen(44100, 10)
	assert.Equal(t, 0, speclen&(speclen-1), "speclen should satisfy the power-of-two test (0 means power of two)")
}

func TestComputeSpeclenMeetsResolution(t *testing.T) {
	const sampleRate = 44100
	fftFreq := 20.0
	speclen := ComputeSpeclen(sampleRate, fftFreq)
	assert.LessOrEqual(t, float64(sampleRate)/(2*float64(speclen)), fftFreq)
	// One power of two coarser must violate the target resolution.
	assert.Greater(t, float64(sampleRate)/(2*float64(speclen/2)), fftFreq)
}

func TestWindowCacheMemoizesAndSizesCorrectly(t *testing.T) {
	c := NewWindowCache()
	w1 := c.Get(64, display.Hann)
	w2 := c.Get(64, display.Hann)
	assert.Len(t, w1, 128)
	assert.InDelta(t, 0.0, w1[0], 1e-9)
	assert.Same(t, &w1[0], &w2[0], "same key should return cached slice")
}

func TestAllWindowKindsProduceBoundedCoefficients(t *testing.T) {
	c := NewWindowCache()
	for _, kind := range []display.WindowKind{display.Kaiser, display.Dolph, display.Nuttall, display.Blackman, display.Hann} {
		w := c.Get(32, kind)
		assert.Len(t, w, 64)
		for _, v := range w {
			assert.False(t, math.IsNaN(v), "%v produced NaN", kind)
			assert.LessOrEqual(t, math.Abs(v), 1.0001, "%v coefficient out of [-1,1]", kind)
		}
	}
}

func TestTransformOfSineShowsPeakAtExpectedBin(t *testing.T) {
	const sampleRate = 44100
	const speclen = 512
	const freq = 440.0

	window := make([]float64, 2*speclen)
	for i := range window {
		window[i] = 1 // rectangular, to keep the peak bin sharp
	}

	samples := make([]float64, 2*speclen)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	mags := Transform(samples, window)
	assert.Len(t, mags, speclen+1)

	expectedBin := int(math.Round(freq / (float64(sampleRate) / float64(2*speclen))))
	peakBin := 0
	peakVal := math.Inf(-1)
	for i, v := range mags {
		if v > peakVal {
			peakVal = v
			peakBin = i
		}
	}
	assert.InDelta(t, expectedBin, peakBin, 1)
}
