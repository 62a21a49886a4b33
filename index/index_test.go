package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqarc/gsa/voffset"
)

func off(file int64, block uint16) voffset.Offset {
	return voffset.Offset{File: file, Block: block}
}

func TestAddChunkCoalescesAdjacentChunksInSameBin(t *testing.T) {
	r := NewReference()
	r.AddChunk(5, voffset.Chunk{Begin: off(0, 0), End: off(0, 100)})
	r.AddChunk(5, voffset.Chunk{Begin: off(0, 100), End: off(0, 200)})

	be := r.Bins[5]
	assert.Len(t, be.Chunks, 1)
	assert.Equal(t, off(0, 200), be.Chunks[0].End)
}

func TestAddChunkKeepsDistantChunksSeparate(t *testing.T) {
	r := NewReference()
	r.AddChunk(5, voffset.Chunk{Begin: off(0, 0), End: off(0, 100)})
	r.AddChunk(5, voffset.Chunk{Begin: off(0x20000, 0), End: off(0x20000, 100)})

	assert.Len(t, r.Bins[5].Chunks, 2)
}

func TestAddChunkSetsLeftFromFirstChunk(t *testing.T) {
	r := NewReference()
	r.AddChunk(5, voffset.Chunk{Begin: off(3, 10), End: off(3, 20)})
	assert.Equal(t, off(3, 10), r.Bins[5].Left)
}

func TestUpdateLinearKeepsSmallestOffsetPerWindow(t *testing.T) {
	r := NewReference()
	r.UpdateLinear(2, off(5, 0))
	r.UpdateLinear(2, off(3, 0))
	r.UpdateLinear(2, off(9, 0))

	assert.Equal(t, off(3, 0), r.Linear[2])
}

func TestSealBackfillsZeroLinearEntriesFromPreceding(t *testing.T) {
	r := NewReference()
	r.GrowLinear(5)
	r.UpdateLinear(1, off(7, 0))
	r.Seal()

	assert.Equal(t, off(0, 0), r.Linear[0])
	assert.Equal(t, off(7, 0), r.Linear[1])
	assert.Equal(t, off(7, 0), r.Linear[2])
	assert.Equal(t, off(7, 0), r.Linear[4])
}

func TestSealSortsChunksWithinEachBin(t *testing.T) {
	r := NewReference()
	r.Bins[1] = &BinEntry{Bin: 1, Chunks: []voffset.Chunk{
		{Begin: off(9, 0), End: off(9, 1)},
		{Begin: off(1, 0), End: off(1, 1)},
	}}
	r.Seal()

	assert.True(t, r.Bins[1].Chunks[0].Begin.Less(r.Bins[1].Chunks[1].Begin))
}

func TestSealIsIdempotent(t *testing.T) {
	r := NewReference()
	r.GrowLinear(2)
	r.UpdateLinear(1, off(4, 0))
	r.Seal()
	first := append([]voffset.Offset(nil), r.Linear...)
	r.Seal()
	assert.Equal(t, first, r.Linear)
}

func TestAddMappedAndUnmappedExtendSpan(t *testing.T) {
	r := NewReference()
	r.AddMapped(voffset.Chunk{Begin: off(0, 0), End: off(0, 10)})
	r.AddUnmapped(voffset.Chunk{Begin: off(5, 0), End: off(5, 20)})

	assert.Equal(t, uint64(1), r.Stats.Mapped)
	assert.Equal(t, uint64(1), r.Stats.Unmapped)
	assert.Equal(t, off(0, 0), r.Stats.Span.Begin)
	assert.Equal(t, off(5, 20), r.Stats.Span.End)
}

func TestSortedBinNumbersIsAscending(t *testing.T) {
	r := NewReference()
	r.AddChunk(9, voffset.Chunk{Begin: off(0, 0), End: off(0, 1)})
	r.AddChunk(1, voffset.Chunk{Begin: off(0, 0), End: off(0, 1)})
	r.AddChunk(5, voffset.Chunk{Begin: off(0, 0), End: off(0, 1)})

	assert.Equal(t, []uint32{1, 5, 9}, r.SortedBinNumbers())
}

func TestSquashMergesAllChunksIntoOne(t *testing.T) {
	chunks := []voffset.Chunk{
		{Begin: off(0, 0), End: off(0, 10)},
		{Begin: off(5, 0), End: off(5, 20)},
	}
	got := Squash(chunks)
	assert.Len(t, got, 1)
	assert.Equal(t, off(0, 0), got[0].Begin)
	assert.Equal(t, off(5, 20), got[0].End)
}

func TestCompressorStrategyMergesNearbyChunks(t *testing.T) {
	chunks := []voffset.Chunk{
		{Begin: off(0, 0), End: off(0, 10)},
		{Begin: off(50, 0), End: off(50, 10)},
		{Begin: off(10000, 0), End: off(10000, 10)},
	}
	got := CompressorStrategy(100)(chunks)
	assert.Len(t, got, 2)
}

func TestMergeChunksAppliesStrategyToEveryBin(t *testing.T) {
	r := NewReference()
	r.AddChunk(1, voffset.Chunk{Begin: off(0, 0), End: off(0, 10)})
	r.AddChunk(1, voffset.Chunk{Begin: off(0x20000, 0), End: off(0x20000, 10)})
	r.MergeChunks(Squash)

	assert.Len(t, r.Bins[1].Chunks, 1)
}
