// Package bin implements the hierarchical binning scheme used to map a
// half-open reference interval to a bin number, and to enumerate every
// bin that can overlap a queried interval.
//
// Two parameterizations are supported: the fixed six-level scheme used
// by the default on-disk index format (package bai), and the
// variable-depth scheme (minShift, depth) used by the CSI format
// (package csi). Both are expressed here through a single Scheme type
// so bai and csi share one implementation of the bin arithmetic.
package bin

// Scheme parameterizes the binning hierarchy. The fixed-depth default
// has MinShift 14 and Depth 5 (six levels counting level 0); CSI
// indexes carry their own MinShift/Depth pair read from the file
// header.
type Scheme struct {
	MinShift uint32
	Depth    uint32
}

// Default is the fixed-depth ("BAI") scheme: 6 levels, smallest bin
// width 2^14, bin widths 2^14..2^29.
var Default = Scheme{MinShift: 14, Depth: 5}

const nextBinShift = 3

// MaxSpan returns the maximum interval length the scheme can index.
func (s Scheme) MaxSpan() int64 {
	return 1 << (s.MinShift + s.Depth*nextBinShift)
}

// NumBins returns the total number of bins across all levels,
// including bin 0: (8^(depth+1) - 1) / 7.
func (s Scheme) NumBins() uint64 {
	return (uint64(1)<<((s.Depth+1)*nextBinShift) - 1) / 7
}

// MetaBin is the reserved pseudo-bin number carrying per-reference
// metadata (mapped/unmapped counts, first/last virtual offset): one
// past the highest real bin number, maxBin+1. For the default scheme
// this is 37450 (0x924a), matching htslib/samtools.
func (s Scheme) MetaBin() uint32 {
	return uint32(s.NumBins()) + 1
}

// validPos reports whether i is a valid 0-based coordinate for this
// scheme: -1 (unplaced) or within the maximum indexable span.
func (s Scheme) validPos(i int) bool {
	return -1 <= i && int64(i) <= s.MaxSpan()-1
}

// ValidRange reports whether the half-open interval [beg,end) is fully
// representable by this scheme.
func (s Scheme) ValidRange(beg, end int) bool {
	return s.validPos(beg) && s.validPos(end)
}

// For returns the bin number for the half-open interval [beg,end)
// (0-based). It generalizes the fixed six-level BAI binning formula
// by substituting MinShift for 14 and walking Depth levels instead of
// a hard-coded five, from the finest level up to the whole-reference
// bin 0.
func (s Scheme) For(beg, end int) uint32 {
	end--
	shift := s.MinShift
	for level := s.Depth; level > 0; level-- {
		if beg>>shift == end>>shift {
			return levelBase(level) + uint32(beg>>shift)
		}
		shift += nextBinShift
	}
	return 0
}

// levelBase returns the bin number of the first bin at the given
// level, (8^level - 1) / 7.
func levelBase(level uint32) uint32 {
	return uint32((uint64(1)<<(level*nextBinShift) - 1) / 7)
}

// Overlapping returns every bin number, across all levels, that can
// overlap the half-open interval [beg,end). Bin 0 (the whole
// reference) is always included.
func (s Scheme) Overlapping(beg, end int) []uint32 {
	end--
	list := make([]uint32, 0, 8)
	list = append(list, 0)
	shift := s.MinShift + s.Depth*nextBinShift
	for level := uint32(1); level <= s.Depth; level++ {
		shift -= nextBinShift
		base := levelBase(level)
		lo := base + uint32(beg>>shift)
		hi := base + uint32(end>>shift)
		for b := lo; b <= hi; b++ {
			list = append(list, b)
		}
	}
	return list
}

// LevelOf returns the hierarchy level (0 == whole reference) that bin
// belongs to, used by the CSI query engine's lOffset sibling walk.
func (s Scheme) LevelOf(bin uint32) uint32 {
	for level := s.Depth; ; level-- {
		if bin >= levelBase(level) {
			return level
		}
		if level == 0 {
			return 0
		}
	}
}

// Parent returns the bin number of the immediate ancestor of bin, and
// true, or (0, false) if bin is already bin 0.
func (s Scheme) Parent(bin uint32) (uint32, bool) {
	level := s.LevelOf(bin)
	if level == 0 {
		return 0, false
	}
	offsetWithinLevel := bin - levelBase(level)
	return levelBase(level-1) + offsetWithinLevel>>nextBinShift, true
}

// LeftSibling returns the bin immediately preceding bin within its
// level, and true, or (0, false) if bin is the first bin in its level
// (or bin 0).
func (s Scheme) LeftSibling(bin uint32) (uint32, bool) {
	level := s.LevelOf(bin)
	if level == 0 || bin == levelBase(level) {
		return 0, false
	}
	return bin - 1, true
}

// Window returns the linear-index tile index covering 0-based position
// pos: floor(pos / 2^MinShift).
func (s Scheme) Window(pos int) int {
	return pos >> s.MinShift
}

// TileWidth returns 2^MinShift, the width in reference bases of one
// linear-index window.
func (s Scheme) TileWidth() int {
	return 1 << s.MinShift
}
