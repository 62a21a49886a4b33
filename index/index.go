// Package index implements the reference-scoped data structures shared
// by both on-disk index formats: the linear index and the binning
// index. Package bai and package csi each wrap a Reference with
// their own file framing and bin.Scheme; the structures and
// coalescing/backfill logic here are format-agnostic.
package index

import (
	"sort"

	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/voffset"
)

// Stats holds per-reference mapping statistics: the span of the
// indexed stream holding alignments to the reference, and mapped /
// unmapped read counts.
type Stats struct {
	Span    voffset.Chunk
	Mapped  uint64
	Unmapped uint64
}

// BinEntry is one bin's chunk list plus the smallest virtual offset
// ever recorded for that bin (used as a CSI lOffset lower bound).
type BinEntry struct {
	Bin    uint32
	Chunks []voffset.Chunk
	// Left is the smallest virtual offset seen in this bin; CSI
	// indexes persist it directly as lOffset, BAI indexes leave it
	// implicit (its linear index serves the same purpose).
	Left voffset.Offset
	// Records is a per-bin read count; no code in this module sets
	// it, and neither the bai nor the csi writer persists it.
	Records uint64
}

// Reference is the finalized linear + binning index for one reference
// sequence.
type Reference struct {
	Bins     map[uint32]*BinEntry
	Linear   []voffset.Offset
	Stats    *Stats
	recent   *BinEntry // last-touched bin, hot-path cache.
	sealed   bool
}

// NewReference returns an empty, writable Reference.
func NewReference() *Reference {
	return &Reference{Bins: make(map[uint32]*BinEntry)}
}

// bin returns the BinEntry for number b, creating it if absent, and
// updates the single-entry recency cache used by the hot write path.
func (r *Reference) bin(b uint32) *BinEntry {
	if r.recent != nil && r.recent.Bin == b {
		return r.recent
	}
	be, ok := r.Bins[b]
	if !ok {
		be = &BinEntry{Bin: b}
		r.Bins[b] = be
	}
	r.recent = be
	return be
}

// AddChunk appends chunk c to bin b, coalescing it with the bin's last
// chunk when c starts in the same or an adjacent compressed block as
// the last chunk ends.
func (r *Reference) AddChunk(b uint32, c voffset.Chunk) {
	be := r.bin(b)
	if len(be.Chunks) == 0 {
		be.Left = c.Begin
	}
	if n := len(be.Chunks); n > 0 && be.Chunks[n-1].CoalescesWith(c) {
		be.Chunks[n-1] = be.Chunks[n-1].Coalesce(c)
		return
	}
	be.Chunks = append(be.Chunks, c)
}

// GrowLinear ensures the linear index has at least n windows,
// extending with the zero Offset (to be backfilled at Seal).
func (r *Reference) GrowLinear(n int) {
	if len(r.Linear) >= n {
		return
	}
	grown := make([]voffset.Offset, n)
	copy(grown, r.Linear)
	r.Linear = grown
}

// UpdateLinear records that window w's smallest reaching virtual
// offset may be vo: linear[w] = min(linear[w], vo), treating the zero
// offset in an unset slot as "unset" rather than as offset 0.
func (r *Reference) UpdateLinear(w int, vo voffset.Offset) {
	r.GrowLinear(w + 1)
	cur := r.Linear[w]
	if cur.IsZero() || vo.Less(cur) {
		r.Linear[w] = vo
	}
}

// AddMapped records one mapped read's membership in this reference,
// extending the reference span.
func (r *Reference) AddMapped(c voffset.Chunk) {
	r.touchStats(c)
	r.Stats.Mapped++
}

// AddUnmapped records one unmapped-but-placed read's membership in
// this reference.
func (r *Reference) AddUnmapped(c voffset.Chunk) {
	r.touchStats(c)
	r.Stats.Unmapped++
}

func (r *Reference) touchStats(c voffset.Chunk) {
	if r.Stats == nil {
		r.Stats = &Stats{Span: c}
		return
	}
	if c.End.Packed() > r.Stats.Span.End.Packed() {
		r.Stats.Span.End = c.End
	}
	if c.Begin.Packed() < r.Stats.Span.Begin.Packed() {
		r.Stats.Span.Begin = c.Begin
	}
}

// Seal finalizes the reference: sorts each bin's chunks by start
// offset (bins themselves live in a map; SortedBinNumbers gives their
// order), and back-fills zero (unset) linear-index entries from the nearest
// preceding non-zero entry, matching htslib/samtools behavior. Once
// sealed, the Reference must not be mutated further.
func (r *Reference) Seal() {
	if r.sealed {
		return
	}
	for _, be := range r.Bins {
		sort.Slice(be.Chunks, func(i, j int) bool {
			return be.Chunks[i].Begin.Less(be.Chunks[j].Begin)
		})
	}
	var last voffset.Offset
	for i, o := range r.Linear {
		if o.IsZero() {
			r.Linear[i] = last
		} else {
			last = o
		}
	}
	r.sealed = true
	r.recent = nil
}

// SortedBinNumbers returns the bin numbers present in r, ascending.
func (r *Reference) SortedBinNumbers() []uint32 {
	nums := make([]uint32, 0, len(r.Bins))
	for b := range r.Bins {
		nums = append(nums, b)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// MergeStrategy is a pluggable chunk-compaction strategy applied to
// every bin's chunk list, letting callers trade index size against
// seek granularity (grounded in the bgzf/index MergeStrategy
// type; construction only performs Adjacent coalescing, this is a
// post-hoc re-compaction knob).
type MergeStrategy func([]voffset.Chunk) []voffset.Chunk

// Identity leaves chunks unaltered.
func Identity(chunks []voffset.Chunk) []voffset.Chunk { return chunks }

// Squash merges all chunks in a bin into a single spanning chunk.
func Squash(chunks []voffset.Chunk) []voffset.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	out := chunks[0]
	for _, c := range chunks[1:] {
		if c.End.Packed() > out.End.Packed() {
			out.End = c.End
		}
	}
	return []voffset.Chunk{out}
}

// CompressorStrategy merges chunks whose BGZF block starts are within
// near bytes of each other, trading a larger candidate read for a
// smaller index.
func CompressorStrategy(near int64) MergeStrategy {
	return func(chunks []voffset.Chunk) []voffset.Chunk {
		if len(chunks) == 0 {
			return nil
		}
		out := make([]voffset.Chunk, 0, len(chunks))
		out = append(out, chunks[0])
		for _, c := range chunks[1:] {
			last := &out[len(out)-1]
			if last.End.File+near >= c.Begin.File {
				if c.End.Packed() > last.End.Packed() {
					last.End = c.End
				}
				continue
			}
			out = append(out, c)
		}
		return out
	}
}

// MergeChunks applies s to every bin in r.
func (r *Reference) MergeChunks(s MergeStrategy) {
	if s == nil {
		return
	}
	for _, be := range r.Bins {
		be.Chunks = s(be.Chunks)
	}
}

// Scheme re-exports bin.Scheme so callers of this package do not need
// a second import for the common case of threading a scheme through.
type Scheme = bin.Scheme
