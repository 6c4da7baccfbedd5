package resultcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spettro-go/spettro/pkg/display"
)

func col(n int) *Column {
	return &Column{Magnitudes: make([]float64, n), SampleRate: 44100}
}

func TestLookupMiss(t *testing.T) {
	c := NewCache(1 << 20)
	_, ok := c.Lookup(Key{ColumnTime: 1.0, Speclen: 512, Window: display.Hann})
	assert.False(t, ok)
}

func TestInsertThenLookup(t *testing.T) {
	c := NewCache(1 << 20)
	key := Key{ColumnTime: 1.0, Speclen: 512, Window: display.Hann}
	c.Insert(key, col(513))

	got, ok := c.Lookup(key)
	require.True(t, ok)
	assert.Len(t, got.Magnitudes, 513)
}

func TestInsertReplacesOnCollision(t *testing.T) {
	c := NewCache(1 << 20)
	key := Key{ColumnTime: 1.0, Speclen: 512, Window: display.Hann}
	c.Insert(key, col(513))
	c.Insert(key, col(999))

	got, _ := c.Lookup(key)
	assert.Len(t, got.Magnitudes, 999)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsedUnderCapacity(t *testing.T) {
	// Each column of speclen 100 costs 100*8+16 = 816 bytes.
	c := NewCache(816 * 2)
	k1 := Key{ColumnTime: 1, Speclen: 100, Window: display.Hann}
	k2 := Key{ColumnTime: 2, Speclen: 100, Window: display.Hann}
	k3 := Key{ColumnTime: 3, Speclen: 100, Window: display.Hann}

	c.Insert(k1, col(100))
	c.Insert(k2, col(100))
	c.Lookup(k1) // k1 now more recently used than k2
	c.Insert(k3, col(100))

	_, ok1 := c.Lookup(k1)
	_, ok2 := c.Lookup(k2)
	_, ok3 := c.Lookup(k3)
	assert.True(t, ok1)
	assert.False(t, ok2, "k2 should have been evicted as least recently used")
	assert.True(t, ok3)
}

func TestPinnedEntrySurvivesEviction(t *testing.T) {
	c := NewCache(816 * 2)
	k1 := Key{ColumnTime: 1, Speclen: 100, Window: display.Hann}
	k2 := Key{ColumnTime: 2, Speclen: 100, Window: display.Hann}
	k3 := Key{ColumnTime: 3, Speclen: 100, Window: display.Hann}

	c.Insert(k1, col(100))
	c.Pin(k1)
	c.Insert(k2, col(100))
	c.Insert(k3, col(100))

	_, ok1 := c.Lookup(k1)
	assert.True(t, ok1, "pinned entry must survive eviction pressure")
}

func TestInvalidateByPredicateDropsMatchingOnly(t *testing.T) {
	c := NewCache(1 << 20)
	kHann := Key{ColumnTime: 1, Speclen: 512, Window: display.Hann}
	kKaiser := Key{ColumnTime: 1, Speclen: 512, Window: display.Kaiser}
	c.Insert(kHann, col(513))
	c.Insert(kKaiser, col(513))

	c.InvalidateByPredicate(func(k Key) bool { return k.Window != display.Kaiser })

	_, okHann := c.Lookup(kHann)
	_, okKaiser := c.Lookup(kKaiser)
	assert.False(t, okHann)
	assert.True(t, okKaiser)
}

func TestDropAll(t *testing.T) {
	c := NewCache(1 << 20)
	c.Insert(Key{ColumnTime: 1, Speclen: 512, Window: display.Hann}, col(513))
	c.DropAll()
	assert.Equal(t, 0, c.Len())
}

func TestQuantizeColumnTime(t *testing.T) {
	assert.InDelta(t, 1.0, QuantizeColumnTime(1.003, 0.04), 1e-9)
	assert.InDelta(t, 1.04, QuantizeColumnTime(1.021, 0.04), 1e-9)
}
