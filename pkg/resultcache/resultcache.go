// Package resultcache holds computed spectrogram columns keyed by
// (column_time, speclen, window_kind), with soft-cap LRU eviction and a
// pinned visible set for the duration of an active paint.
package resultcache

import (
	"math"
	"sync"

	"github.com/spettro-go/spettro/pkg/display"
)

// Key identifies a cached column. ColumnTime is pre-quantized by the
// caller to round(t/secpp)*secpp, per spec.md's result-key definition.
type Key struct {
	ColumnTime float64
	Speclen    int
	Window     display.WindowKind
}

// Column is an immutable computed spectrogram column: speclen+1 dB
// magnitudes plus the sample rate they were computed at.
type Column struct {
	Magnitudes []float64
	SampleRate int
}

func (c *Column) bytes() int64 {
	return int64(len(c.Magnitudes))*8 + 16
}

type entry struct {
	key    Key
	column *Column
}

// Cache is a soft-capacity-by-bytes LRU column store. A single lock
// protects the index; entries themselves are never mutated after
// insertion, so lookups may hand out references freely.
type Cache struct {
	mu       sync.Mutex
	index    map[Key]*entry
	order    []Key // front = most recently used
	size     int64
	capacity int64
	pinned   map[Key]bool
}

// NewCache creates a cache with the given soft byte capacity.
func NewCache(capacityBytes int64) *Cache {
	return &Cache{
		index:    make(map[Key]*entry),
		capacity: capacityBytes,
		pinned:   make(map[Key]bool),
	}
}

// Lookup returns the column for key and whether it was present.
func (c *Cache) Lookup(key Key) (*Column, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.touch(key)
	return e.column, true
}

// Insert stores column under key, replacing any existing entry for
// that key, and evicts least-recently-used unpinned entries until the
// cache is back under its soft byte capacity.
func (c *Cache) Insert(key Key, column *Column) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index[key]; ok {
		c.size -= old.column.bytes()
		c.removeFromOrder(key)
	}

	c.index[key] = &entry{key: key, column: column}
	c.size += column.bytes()
	c.order = append([]Key{key}, c.order...)

	c.evict()
}

func (c *Cache) touch(key Key) {
	c.removeFromOrder(key)
	c.order = append([]Key{key}, c.order...)
}

func (c *Cache) removeFromOrder(key Key) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) evict() {
	if c.capacity <= 0 {
		return
	}
	for c.size > c.capacity {
		evicted := false
		for i := len(c.order) - 1; i >= 0; i-- {
			key := c.order[i]
			if c.pinned[key] {
				continue
			}
			e := c.index[key]
			c.size -= e.column.bytes()
			delete(c.index, key)
			c.order = append(c.order[:i], c.order[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return // everything left is pinned
		}
	}
}

// Pin marks key as part of the currently-visible set, exempting it
// from eviction until Unpin is called.
func (c *Cache) Pin(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[key] = true
}

// Unpin clears a pin set by Pin.
func (c *Cache) Unpin(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pinned, key)
}

// UnpinAll clears every pin, e.g. after a paint pass completes.
func (c *Cache) UnpinAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = make(map[Key]bool)
}

// InvalidateByPredicate drops every entry for which p(key) holds, used
// when fft_freq/window_kind changes (drop entries with a different
// speclen/window_kind) or the audio file changes (drop everything).
func (c *Cache) InvalidateByPredicate(p func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.index {
		if p(key) {
			c.size -= e.column.bytes()
			delete(c.index, key)
			c.removeFromOrder(key)
			delete(c.pinned, key)
		}
	}
}

// DropAll flushes the entire cache.
func (c *Cache) DropAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[Key]*entry)
	c.order = nil
	c.size = 0
	c.pinned = make(map[Key]bool)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// QuantizeColumnTime rounds t to the nearest column boundary for secpp,
// matching spec.md's result-key definition exactly.
func QuantizeColumnTime(t, secpp float64) float64 {
	return math.Round(t/secpp) * secpp
}
