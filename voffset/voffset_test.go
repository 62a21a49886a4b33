package voffset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackedRoundTrips(t *testing.T) {
	o := Offset{File: 0x123456789, Block: 0xBEEF}
	assert.Equal(t, o, FromPacked(o.Packed()))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Offset{}.IsZero())
	assert.False(t, Offset{File: 1}.IsZero())
	assert.False(t, Offset{Block: 1}.IsZero())
}

func TestLess(t *testing.T) {
	a := Offset{File: 1, Block: 0xFFFF}
	b := Offset{File: 2, Block: 0}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestAdjacentBlocksSameAndConsecutive(t *testing.T) {
	assert.True(t, AdjacentBlocks(100, 100))
	assert.True(t, AdjacentBlocks(100, 100+maxBlockDistance))
	assert.False(t, AdjacentBlocks(100, 100+maxBlockDistance+1))
	assert.False(t, AdjacentBlocks(100, 99))
}

func TestChunkEmpty(t *testing.T) {
	c := Chunk{Begin: Offset{File: 5}, End: Offset{File: 5}}
	assert.True(t, c.Empty())
	c.End.Block = 1
	assert.False(t, c.Empty())
}

func TestChunkTruncatedAt(t *testing.T) {
	c := Chunk{Begin: Offset{File: 0}, End: Offset{File: 10}}
	got := c.TruncatedAt(Offset{File: 5})
	assert.Equal(t, Offset{File: 5}, got.Begin)

	unchanged := c.TruncatedAt(Offset{File: 0})
	assert.Equal(t, c.Begin, unchanged.Begin)
}

func TestChunkCoalescesWithAdjacentBlock(t *testing.T) {
	a := Chunk{Begin: Offset{File: 0}, End: Offset{File: 0, Block: 0xFFFF}}
	b := Chunk{Begin: Offset{File: maxBlockDistance}, End: Offset{File: maxBlockDistance, Block: 10}}
	assert.True(t, a.CoalescesWith(b))

	merged := a.Coalesce(b)
	assert.Equal(t, b.End, merged.End)
}

func TestChunkDoesNotCoalesceAcrossGap(t *testing.T) {
	a := Chunk{Begin: Offset{File: 0}, End: Offset{File: 0, Block: 0xFFFF}}
	b := Chunk{Begin: Offset{File: maxBlockDistance + 1}, End: Offset{File: maxBlockDistance + 1, Block: 10}}
	assert.False(t, a.CoalescesWith(b))
}
