// Package dspwin provides the FFT kernel and the window-coefficient
// cache used to turn a block of samples into a dB magnitude column.
package dspwin

import (
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/spettro-go/spettro/pkg/display"
)

// ComputeSpeclen derives the smallest power-of-two spectrum length such
// that sample_rate / (2*speclen) <= fftFreq.
func ComputeSpeclen(sampleRate int, fftFreq float64) int {
	if fftFreq <= 0 {
		fftFreq = MinFFTFreq(sampleRate)
	}
	speclen := 1
	for float64(sampleRate)/(2*float64(speclen)) > fftFreq {
		speclen <<= 1
	}
	return speclen
}

// MinFFTFreq is the smallest usable FFT frequency resolution for a
// given sample rate, corresponding to a 65536-point FFT (speclen 32768).
func MinFFTFreq(sampleRate int) float64 {
	return float64(sampleRate) / 65536.0
}

// Transform windows a 2*speclen-length real sample block, runs the FFT,
// and returns speclen+1 dB magnitudes (half spectrum plus Nyquist). It
// is stateless and safe to call concurrently from multiple goroutines.
func Transform(samples, window []float64) []float64 {
	n := len(samples)
	speclen := n / 2

	buf := make([]complex128, n)
	for i := 0; i < n; i++ {
		buf[i] = complex(samples[i]*window[i], 0)
	}

	result := fft.FFT(buf)

	out := make([]float64, speclen+1)
	for i := 0; i <= speclen; i++ {
		magnitude := math.Hypot(real(result[i]), imag(result[i]))
		if magnitude > 0 {
			out[i] = 20.0 * math.Log10(magnitude)
		} else {
			out[i] = -1000.0
		}
	}
	return out
}

// WindowCache memoizes window coefficient vectors by (speclen, kind).
// Vectors are computed once and shared read-only thereafter.
type WindowCache struct {
	mu    sync.Mutex
	cache map[windowKey][]float64
}

type windowKey struct {
	speclen int
	kind    display.WindowKind
}

// NewWindowCache creates an empty window cache.
func NewWindowCache() *WindowCache {
	return &WindowCache{cache: make(map[windowKey][]float64)}
}

// Get returns the coefficient vector of length 2*speclen for the given
// window kind, computing and caching it on first use.
func (c *WindowCache) Get(speclen int, kind display.WindowKind) []float64 {
	key := windowKey{speclen, kind}

	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.cache[key]; ok {
		return w
	}

	n := 2 * speclen
	var w []float64
	switch kind {
	case display.Kaiser:
		w = kaiserWindow(n, 90)
	case display.Dolph:
		w = chebyshevWindow(n, 80)
	case display.Nuttall:
		w = nuttallWindow(n)
	case display.Blackman:
		w = blackmanWindow(n)
	default:
		w = hannWindow(n)
	}
	c.cache[key] = w
	return w
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

func blackmanWindow(size int) []float64 {
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		phase := 2.0 * math.Pi * float64(i) / float64(size-1)
		w[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
	}
	return w
}

func nuttallWindow(size int) []float64 {
	const a0, a1, a2, a3 = 0.355768, 0.487396, 0.144232, 0.012604
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		phase := 2.0 * math.Pi * float64(i) / float64(size-1)
		w[i] = a0 - a1*math.Cos(phase) + a2*math.Cos(2*phase) - a3*math.Cos(3*phase)
	}
	return w
}

// kaiserWindow builds a Kaiser window targeting the given sidelobe
// attenuation in dB, using Kaiser and Schafer's empirical fit of beta
// to the peak sidelobe level.
func kaiserWindow(size int, sidelobeDB float64) []float64 {
	var beta float64
	switch {
	case sidelobeDB > 60:
		beta = 0.12438 * (sidelobeDB + 6.3)
	case sidelobeDB > 13.26:
		d := sidelobeDB - 13.26
		beta = 0.76609*math.Pow(d, 0.4) + 0.09834*d
	}
	alpha := float64(size-1) / 2.0
	denom := besselI0(beta)

	w := make([]float64, size)
	for i := 0; i < size; i++ {
		ratio := (float64(i) - alpha) / alpha
		arg := beta * math.Sqrt(math.Max(0, 1-ratio*ratio))
		w[i] = besselI0(arg) / denom
	}
	return w
}

// besselI0 computes the modified Bessel function of the first kind,
// order zero, via its power series. Thirty-odd terms give full
// float64 precision for the beta values Kaiser windows use here.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2.0
	for k := 1; k < 40; k++ {
		term *= (halfX * halfX) / (float64(k) * float64(k))
		sum += term
		if term < 1e-18*sum {
			break
		}
	}
	return sum
}

// chebyshevWindow builds a Dolph-Chebyshev window targeting the given
// sidelobe attenuation in dB via the direct-summation design formula.
func chebyshevWindow(n int, sidelobeDB float64) []float64 {
	if n <= 1 {
		return []float64{1}
	}
	order := n - 1
	gamma := math.Pow(10, sidelobeDB/20)
	beta := math.Cosh(math.Acosh(gamma) / float64(order))

	w := make([]float64, n)
	maxVal := 0.0
	for i := 0; i < n; i++ {
		sum := 0.0
		for k := 0; k < n; k++ {
			x := beta * math.Cos(math.Pi*float64(k)/float64(n))
			sum += chebyshevPoly(order, x) * math.Cos(2*math.Pi*float64(k)*(float64(i)-float64(order)/2)/float64(n))
		}
		v := sum / float64(n)
		w[i] = v
		if math.Abs(v) > maxVal {
			maxVal = math.Abs(v)
		}
	}
	if maxVal > 0 {
		for i := range w {
			w[i] /= maxVal
		}
	}
	return w
}

func chebyshevPoly(n int, x float64) float64 {
	switch {
	case x > 1:
		return math.Cosh(float64(n) * math.Acosh(x))
	case x < -1:
		sign := 1.0
		if n%2 != 0 {
			sign = -1.0
		}
		return sign * math.Cosh(float64(n)*math.Acosh(-x))
	default:
		return math.Cos(float64(n) * math.Acos(x))
	}
}
