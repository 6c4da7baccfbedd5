// Package notefreq holds the small pure-math conversions that the
// spectrogram core and its overlays share: musical note name <-> frequency,
// human time string <-> seconds, and pixel column <-> audio time.
package notefreq

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var semitoneIndex = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// NoteNameToFreq converts a scientific-pitch-notation note name (e.g. "A4",
// "C#3", "Bb2") to its equal-tempered frequency in Hz, A4 == 440.0.
func NoteNameToFreq(name string) (float64, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return 0, fmt.Errorf("notefreq: invalid note name %q", name)
	}

	letter := name[0] - 'a' + 'A'
	if name[0] >= 'A' && name[0] <= 'Z' {
		letter = name[0]
	}
	base, ok := semitoneIndex[letter]
	if !ok {
		return 0, fmt.Errorf("notefreq: invalid note letter in %q", name)
	}

	rest := name[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		base++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"), strings.HasPrefix(rest, "B") && len(rest) > 1:
		base--
		rest = rest[1:]
	}
	base = ((base % 12) + 12) % 12

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("notefreq: invalid octave in %q: %w", name, err)
	}

	midi := (octave+1)*12 + base
	return midiToFreq(midi), nil
}

// FreqToNoteName converts a frequency in Hz to the nearest scientific
// pitch name, always spelled with sharps.
func FreqToNoteName(freq float64) string {
	midi := int(math.Round(69 + 12*math.Log2(freq/440.0)))
	octave := midi/12 - 1
	semitone := ((midi % 12) + 12) % 12
	return fmt.Sprintf("%s%d", sharpNames[semitone], octave)
}

func midiToFreq(midi int) float64 {
	return 440.0 * math.Pow(2, float64(midi-69)/12.0)
}

// StringToSeconds parses a time string in "S", "M:S" or "H:M:S" form into
// seconds. M and S must each be < 60. Valid range is [0, 359999.99].
func StringToSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")

	var total float64
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("notefreq: invalid seconds %q: %w", s, err)
		}
		total = v
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil || m < 0 || m >= 60 {
			return 0, fmt.Errorf("notefreq: invalid minutes in %q", s)
		}
		sec, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("notefreq: invalid seconds in %q", s)
		}
		total = float64(m)*60 + sec
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil || h < 0 {
			return 0, fmt.Errorf("notefreq: invalid hours in %q", s)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 0 || m >= 60 {
			return 0, fmt.Errorf("notefreq: invalid minutes in %q", s)
		}
		sec, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("notefreq: invalid seconds in %q", s)
		}
		total = float64(h)*3600 + float64(m)*60 + sec
	default:
		return 0, fmt.Errorf("notefreq: invalid time string %q", s)
	}

	if total < 0 || total > 359999.99 {
		return 0, fmt.Errorf("notefreq: time %v out of range [0, 359999.99]", total)
	}
	return total, nil
}

// SecondsToString formats seconds into the canonical "S", "M:S" or "H:M:S"
// form, choosing the shortest form that fits the magnitude: plain seconds
// under a minute, M:S under an hour, H:M:S beyond that. The result always
// round-trips through StringToSeconds.
func SecondsToString(t float64) string {
	if t < 0 {
		t = 0
	}
	t = math.Round(t*100) / 100
	hours := int(t) / 3600
	rem := t - float64(hours*3600)
	minutes := int(rem) / 60
	secs := rem - float64(minutes*60)

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%05.2f", hours, minutes, secs)
	}
	if minutes > 0 {
		return fmt.Sprintf("%d:%05.2f", minutes, secs)
	}
	return fmt.Sprintf("%.2f", secs)
}

// PieceColumn returns the piece-absolute column index for audio time t at
// the given seconds-per-pixel step.
func PieceColumn(t, secpp float64) int {
	return int(math.Round(t / secpp))
}

// ScreenColumnToStartTime maps screen pixel column x to the audio time at
// its left edge, given the current display center time, seconds-per-pixel,
// and the screen's center column offset.
func ScreenColumnToStartTime(x, dispOffset int, dispTime, secpp float64) float64 {
	centerCol := PieceColumn(dispTime, secpp)
	col := centerCol + (x - dispOffset)
	return float64(col) * secpp
}

// TimeToScreenColumn maps audio time t to the screen pixel column it falls
// under, the inverse of ScreenColumnToStartTime.
func TimeToScreenColumn(t float64, dispOffset int, dispTime, secpp float64) int {
	centerCol := PieceColumn(dispTime, secpp)
	col := PieceColumn(t, secpp)
	return dispOffset + (col - centerCol)
}
