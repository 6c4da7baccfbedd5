package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spettro-go/spettro/pkg/display"
)

func TestParseFlagsAppliesDefaultsAndFile(t *testing.T) {
	opts, files, exitCode, handled := parseFlags([]string{"song.wav"})
	require.False(t, handled)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, []string{"song.wav"}, files)
	assert.Equal(t, 800, opts.width)
	assert.Equal(t, 480, opts.height)
	assert.Equal(t, display.Kaiser, opts.window)
	assert.Equal(t, display.Heat, opts.colorMap)
	assert.Equal(t, 1, opts.beats)
}

func TestParseFlagsParsesNoteNamedFrequencies(t *testing.T) {
	opts, _, _, handled := parseFlags([]string{"--min-freq", "A0", "--max-freq", "C8", "song.wav"})
	require.False(t, handled)
	assert.InDelta(t, 27.5, opts.minFreq, 0.1)
	assert.Greater(t, opts.maxFreq, opts.minFreq)
}

func TestParseFlagsRejectsMissingFile(t *testing.T) {
	_, _, exitCode, handled := parseFlags([]string{})
	assert.True(t, handled)
	assert.Equal(t, 1, exitCode)
}

func TestParseFlagsRejectsInvertedFrequencyRange(t *testing.T) {
	_, _, exitCode, handled := parseFlags([]string{"--min-freq", "8000", "--max-freq", "20", "song.wav"})
	assert.True(t, handled)
	assert.Equal(t, 1, exitCode)
}

func TestParseFlagsRejectsMutuallyExclusiveOverlays(t *testing.T) {
	_, _, exitCode, handled := parseFlags([]string{"--score", "--guitar", "song.wav"})
	assert.True(t, handled)
	assert.Equal(t, 1, exitCode)
}

func TestParseFlagsVersionExitsCleanly(t *testing.T) {
	_, _, exitCode, handled := parseFlags([]string{"--version"})
	assert.True(t, handled)
	assert.Equal(t, 0, exitCode)
}

func TestParseWindowRecognizesFirstLetter(t *testing.T) {
	k, errs := parseWindow("dolph", nil)
	assert.Equal(t, display.Dolph, k)
	assert.Empty(t, errs)
}

func TestParseColorMapRejectsUnknown(t *testing.T) {
	_, errs := parseColorMap("rainbow", nil)
	assert.NotEmpty(t, errs)
}
