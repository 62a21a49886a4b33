package bin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumBinsAndMetaBinForDefaultScheme(t *testing.T) {
	// (8^(Depth+1)-1)/7 = (8^6-1)/7 = 37449, counting every real bin
	// across all six levels (0..37448); the meta pseudo-bin is one past
	// that, 37450 (0x924a), matching htslib/samtools.
	assert.Equal(t, uint64(37449), Default.NumBins())
	assert.Equal(t, uint32(37450), Default.MetaBin())
}

func TestForPlacesSmallIntervalAtFinestLevel(t *testing.T) {
	b := Default.For(0, 1)
	assert.Equal(t, levelBase(5), b)
}

func TestForPlacesWholeReferenceSpanAtBinZero(t *testing.T) {
	b := Default.For(0, int(Default.MaxSpan()))
	assert.Equal(t, uint32(0), b)
}

func TestForPlacesIntervalCrossingATileBoundaryAtCoarserLevel(t *testing.T) {
	tile := Default.TileWidth()
	b := Default.For(tile-1, tile+1)
	assert.Less(t, int(b), int(levelBase(5)))
}

func TestOverlappingAlwaysIncludesBinZero(t *testing.T) {
	bins := Default.Overlapping(100, 200)
	assert.Contains(t, bins, uint32(0))
}

func TestOverlappingIncludesTheBinForThatExactInterval(t *testing.T) {
	beg, end := 0, 100
	want := Default.For(beg, end)
	bins := Default.Overlapping(beg, end)
	assert.Contains(t, bins, want)
}

func TestLevelOfMatchesForsPlacement(t *testing.T) {
	b := Default.For(0, 1)
	assert.Equal(t, Default.Depth, Default.LevelOf(b))
	assert.Equal(t, uint32(0), Default.LevelOf(0))
}

func TestParentWalksUpOneLevel(t *testing.T) {
	leaf := Default.For(0, 1)
	parent, ok := Default.Parent(leaf)
	assert.True(t, ok)
	assert.Equal(t, Default.Depth-1, Default.LevelOf(parent))

	_, ok = Default.Parent(0)
	assert.False(t, ok)
}

func TestLeftSiblingOfFirstBinInLevelIsAbsent(t *testing.T) {
	_, ok := Default.LeftSibling(levelBase(5))
	assert.False(t, ok)

	sib, ok := Default.LeftSibling(levelBase(5) + 1)
	assert.True(t, ok)
	assert.Equal(t, levelBase(5), sib)
}

func TestWindowAndTileWidth(t *testing.T) {
	assert.Equal(t, 1<<Default.MinShift, Default.TileWidth())
	assert.Equal(t, 2, Default.Window(2*Default.TileWidth()+5))
}

func TestValidRangeRejectsOutOfBoundsPositions(t *testing.T) {
	assert.True(t, Default.ValidRange(-1, 0))
	assert.False(t, Default.ValidRange(-2, 0))
	assert.False(t, Default.ValidRange(0, int(Default.MaxSpan())+1))
}
