package sampleio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, numFrames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, numFrames)
	for i := range data {
		data[i] = i % 1000
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   data,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestOpenAndReadExactFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 44100, 10000)

	src, err := Open(path, 16)
	require.NoError(t, err)

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, int64(10000), src.LengthFrames())

	out := src.Read(0, 100)
	assert.Len(t, out, 100)
}

func TestReadZeroPadsBeforeStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 8000, 1000)

	src, err := Open(path, 16)
	require.NoError(t, err)

	out := src.Read(-50, 100)
	assert.Len(t, out, 100)
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0.0, out[i])
	}
}

func TestReadZeroPadsAfterEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 8000, 1000)

	src, err := Open(path, 16)
	require.NoError(t, err)

	out := src.Read(950, 100)
	assert.Len(t, out, 100)
	for i := 50; i < 100; i++ {
		assert.Equal(t, 0.0, out[i])
	}
}

func TestBlockCacheReportsHitsAndMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 8000, 100000)

	src, err := Open(path, 2)
	require.NoError(t, err)

	src.Read(0, 10)
	src.Read(0, 10) // same block, should hit
	hits, misses := src.Stats()
	assert.GreaterOrEqual(t, hits, int64(1))
	assert.GreaterOrEqual(t, misses, int64(1))
}

func TestRepositionAudioCachePrefetches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 8000, 100000)

	src, err := Open(path, 16)
	require.NoError(t, err)

	src.RepositionAudioCache(5.0)
	_, misses := src.Stats()
	assert.Greater(t, misses, int64(0))
}
