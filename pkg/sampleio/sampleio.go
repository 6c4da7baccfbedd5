// Package sampleio decodes an audio file into PCM frames and serves
// fixed-length, zero-padded reads from a block LRU cache.
package sampleio

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/go-audio/wav"
)

// Source is a decoded audio file. Reads are thread-safe; the block
// cache is advisory, a miss transparently re-slices the decoded PCM.
type Source struct {
	path       string
	sampleRate int
	channels   int
	frames     int64 // total frames in the file

	// decoded holds the full interleaved PCM as float64 in [-1, 1].
	// A real streaming decoder would instead re-read from disk per
	// block; this rework decodes once at Open and lets the block
	// cache below simulate the same access pattern so it stays the
	// load-bearing abstraction if a streaming decoder replaces this.
	decoded []float64

	mu        sync.RWMutex
	blockSize int64
	cache     map[int64][]float64
	lru       []int64 // most-recently-used block indices, front = newest
	maxBlocks int

	hits, misses int64
}

// DefaultBlockSize is the frame-count granularity of the block cache.
const DefaultBlockSize = 4096

// Open decodes path as a WAV file and returns a ready-to-read Source.
// maxBlocks bounds the block cache size (see spec: a small multiple of
// the FFT-worker working set, e.g. max FFT length x worker count x 4).
func Open(path string, maxBlocks int) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sampleio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("sampleio: %s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("sampleio: decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("sampleio: %s has no usable format", path)
	}

	channels := buf.Format.NumChannels
	floatBuf := buf.AsFloatBuffer()
	if buf.SourceBitDepth > 1 {
		scale := 1 / math.Pow(2, float64(buf.SourceBitDepth-1))
		for i := range floatBuf.Data {
			floatBuf.Data[i] *= scale
		}
	}

	if maxBlocks <= 0 {
		maxBlocks = 64
	}

	return &Source{
		path:       path,
		sampleRate: buf.Format.SampleRate,
		channels:   channels,
		frames:     int64(len(floatBuf.Data) / channels),
		decoded:    floatBuf.Data,
		blockSize:  DefaultBlockSize,
		cache:      make(map[int64][]float64),
		maxBlocks:  maxBlocks,
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *Source) SampleRate() int { return s.sampleRate }

// Channels returns the number of interleaved channels.
func (s *Source) Channels() int { return s.channels }

// LengthFrames returns the total number of frames in the file.
func (s *Source) LengthFrames() int64 { return s.frames }

// Read returns exactly frameCount frames (interleaved by channel),
// zero-padding before frame 0 and after end-of-file.
func (s *Source) Read(startFrame int64, frameCount int) []float64 {
	out := make([]float64, int64(frameCount)*int64(s.channels))

	for i := 0; i < frameCount; i++ {
		frame := startFrame + int64(i)
		if frame < 0 || frame >= s.frames {
			continue // left zero
		}
		block := s.getBlock(frame / s.blockSize)
		offsetInBlock := (frame % s.blockSize) * int64(s.channels)
		copy(out[int64(i)*int64(s.channels):int64(i+1)*int64(s.channels)],
			block[offsetInBlock:offsetInBlock+int64(s.channels)])
	}
	return out
}

func (s *Source) getBlock(blockIdx int64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.cache[blockIdx]; ok {
		s.hits++
		s.touch(blockIdx)
		return b
	}
	s.misses++

	startFrame := blockIdx * s.blockSize
	endFrame := startFrame + s.blockSize
	if endFrame > s.frames {
		endFrame = s.frames
	}
	block := make([]float64, (endFrame-startFrame)*int64(s.channels))
	if startFrame < s.frames {
		copy(block, s.decoded[startFrame*int64(s.channels):endFrame*int64(s.channels)])
	}

	s.cache[blockIdx] = block
	s.touch(blockIdx)
	s.evictIfNeeded()
	return block
}

func (s *Source) touch(blockIdx int64) {
	for i, v := range s.lru {
		if v == blockIdx {
			s.lru = append(s.lru[:i], s.lru[i+1:]...)
			break
		}
	}
	s.lru = append([]int64{blockIdx}, s.lru...)
}

func (s *Source) evictIfNeeded() {
	for len(s.lru) > s.maxBlocks {
		oldest := s.lru[len(s.lru)-1]
		s.lru = s.lru[:len(s.lru)-1]
		delete(s.cache, oldest)
	}
}

// RepositionAudioCache hints a large upcoming jump (zoom, seek,
// fft_freq change) by prefetching the blocks around centerTime,
// biasing the cache away from the blocks the scroll is leaving behind.
func (s *Source) RepositionAudioCache(centerTime float64) {
	centerFrame := int64(centerTime * float64(s.sampleRate))
	centerBlock := centerFrame / s.blockSize
	span := int64(4)
	for b := centerBlock - span; b <= centerBlock+span; b++ {
		if b < 0 || b*s.blockSize >= s.frames {
			continue
		}
		s.getBlock(b)
	}
}

// Stats returns the block cache's hit/miss counters.
func (s *Source) Stats() (hits, misses int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.misses
}
