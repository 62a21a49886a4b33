// Package voffset implements the virtual offset addressing scheme used
// to locate records inside a block-compressed record stream.
//
// A virtual offset packs the file offset of the start of a compressed
// block into its high 48 bits and the uncompressed byte offset within
// that block into its low 16 bits. It is the atomic unit of position
// for every index structure in this module.
package voffset

import "fmt"

// Offset is a virtual file offset: the byte offset of a compressed
// block's start in the underlying file, and the uncompressed byte
// offset within that block.
type Offset struct {
	File  int64
	Block uint16
}

// Packed returns the 64-bit packed encoding (File<<16 | Block) used on
// disk and for ordering comparisons.
func (o Offset) Packed() uint64 {
	return uint64(o.File)<<16 | uint64(o.Block)
}

// FromPacked constructs an Offset from its packed 64-bit encoding.
func FromPacked(v uint64) Offset {
	return Offset{File: int64(v >> 16), Block: uint16(v)}
}

// IsZero reports whether o is the zero offset, the sentinel meaning
// "no offset recorded".
func (o Offset) IsZero() bool {
	return o == Offset{}
}

// Less reports whether o sorts strictly before other.
func (o Offset) Less(other Offset) bool {
	return o.Packed() < other.Packed()
}

func (o Offset) String() string {
	return fmt.Sprintf("%d<<16|%d", o.File, o.Block)
}

// maxBlockDistance bounds how many compressed bytes may separate two
// block starts for them to still be considered adjacent. BGZF blocks
// are at most 0x10000 (MaxBlockSize) bytes of compressed output, so
// two blocks are adjacent when their file offsets differ by at most
// one maximal block.
const maxBlockDistance = 0x10000

// AdjacentBlocks reports whether a and b, taken as block-start file
// offsets, are the same block or immediately consecutive blocks.
func AdjacentBlocks(a, b int64) bool {
	d := b - a
	return d >= 0 && d <= maxBlockDistance
}

// Adjacent reports whether offset b immediately follows offset a: they
// address the same compressed block, or b's block is the one
// immediately following a's. Chunk.CoalescesWith uses it, together
// with an overlap check, to decide when chunks are coalesced.
func Adjacent(a, b Offset) bool {
	return AdjacentBlocks(a.File, b.File)
}

// Chunk is a half-open virtual-offset interval [Begin, End) covering
// one or more records in the underlying block stream.
type Chunk struct {
	Begin, End Offset
}

// Empty reports whether c spans no bytes.
func (c Chunk) Empty() bool {
	return c.Begin.Packed() >= c.End.Packed()
}

// EndsBefore reports whether c ends at or before offset at.
func (c Chunk) EndsBefore(at Offset) bool {
	return c.End.Packed() <= at.Packed()
}

// TruncatedAt returns a copy of c with Begin raised to at if at is
// later than c.Begin; otherwise c is returned unchanged.
func (c Chunk) TruncatedAt(at Offset) Chunk {
	if at.Packed() > c.Begin.Packed() {
		c.Begin = at
	}
	return c
}

// CoalescesWith reports whether chunk b can be merged into chunk a
// because b begins in the same or an adjacent compressed block as a
// ends.
func (a Chunk) CoalescesWith(b Chunk) bool {
	return Adjacent(a.End, b.Begin) || b.Begin.Packed() <= a.End.Packed()
}

// Coalesce merges b into a in place, extending a's End if b reaches
// further. The caller must have already checked CoalescesWith.
func (a Chunk) Coalesce(b Chunk) Chunk {
	if b.End.Packed() > a.End.Packed() {
		a.End = b.End
	}
	return a
}
