// Package query implements the query engine: turning a
// (refID, start, end) region into a coalesced list of chunks to scan,
// plus optimizeIntervals for multi-interval queries.
//
// Grounded on the internal.Index.Chunks (internal/index.go)
// for the BAI/linear-index variant and csi.Index.Chunks (csi/csi.go)
// for the CSI/lOffset-sibling-walk variant; both are expressed here
// against the format-agnostic index.Reference + bin.Scheme pair so
// package bai and package csi share one implementation.
//
// All coordinates in this package are 0-based half-open [beg,end),
// matching package bin and package index; the 1-based-inclusive public
// convention is converted at the bai/csi package boundary.
package query

import (
	"sort"

	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/index"
	"github.com/seqarc/gsa/voffset"
)

// Linear computes the chunk list for [beg,end) on ref using the
// default (BAI) scheme's linear index as the minimumOffset source
//.
func Linear(ref *index.Reference, scheme bin.Scheme, beg, end int) []voffset.Chunk {
	if ref == nil {
		return nil
	}
	min := linearMinOffset(ref, scheme, beg)
	return resolve(candidates(ref, scheme, beg, end), min)
}

// CSI computes the chunk list for [beg,end) on ref using the
// variable-depth scheme's per-bin lOffset, walking left siblings and
// then ancestors when the bin directly containing beg is absent from
// the index.
func CSI(ref *index.Reference, scheme bin.Scheme, beg, end int) []voffset.Chunk {
	if ref == nil {
		return nil
	}
	min := csiMinOffset(ref, scheme, beg)
	return resolve(candidates(ref, scheme, beg, end), min)
}

// BinAndAncestors returns every chunk recorded in bin b, plus every
// ancestor bin of b present in ref — the variant used when a caller
// queries by a specific bin number rather than a coordinate range
//.
func BinAndAncestors(ref *index.Reference, scheme bin.Scheme, b uint32) []voffset.Chunk {
	if ref == nil {
		return nil
	}
	var out []voffset.Chunk
	cur := b
	for {
		if be, ok := ref.Bins[cur]; ok {
			out = append(out, be.Chunks...)
		}
		parent, ok := scheme.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return coalesce(out)
}

func candidates(ref *index.Reference, scheme bin.Scheme, beg, end int) []voffset.Chunk {
	var out []voffset.Chunk
	for _, b := range scheme.Overlapping(beg, end) {
		if be, ok := ref.Bins[b]; ok {
			out = append(out, be.Chunks...)
		}
	}
	return out
}

func linearMinOffset(ref *index.Reference, scheme bin.Scheme, beg int) voffset.Offset {
	w := scheme.Window(beg)
	if w < 0 || w >= len(ref.Linear) {
		return voffset.Offset{}
	}
	return ref.Linear[w]
}

// csiMinOffset walks from the lowest-level bin containing beg to its
// left sibling, then to its parent once siblings are exhausted, until
// a present bin (or bin 0) supplies an lOffset.
func csiMinOffset(ref *index.Reference, scheme bin.Scheme, beg int) voffset.Offset {
	b := scheme.For(beg, beg+1)
	for {
		if be, ok := ref.Bins[b]; ok {
			return be.Left
		}
		if b == 0 {
			return voffset.Offset{}
		}
		if sib, ok := scheme.LeftSibling(b); ok {
			b = sib
			continue
		}
		parent, ok := scheme.Parent(b)
		if !ok {
			return voffset.Offset{}
		}
		b = parent
	}
}

// resolve drops chunks that end at or before min, truncates chunks
// that start before it, then sorts and coalesces.
func resolve(chunks []voffset.Chunk, min voffset.Offset) []voffset.Chunk {
	kept := make([]voffset.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.EndsBefore(min) {
			continue
		}
		kept = append(kept, c.TruncatedAt(min))
	}
	return coalesce(kept)
}

func coalesce(chunks []voffset.Chunk) []voffset.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Begin.Less(chunks[j].Begin) })
	out := make([]voffset.Chunk, 0, len(chunks))
	out = append(out, chunks[0])
	for _, c := range chunks[1:] {
		last := &out[len(out)-1]
		if last.CoalescesWith(c) {
			*last = last.Coalesce(c)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Interval is one query region: 0-based reference id, 1-based
// inclusive start/end. End == 0 means "to the end of the reference".
type Interval struct {
	RefID      int
	Start, End int
}

// OptimizeIntervals sorts ivs on (RefID, Start, End) and merges
// abutting or overlapping intervals, resolving End == 0 to the
// reference's length via refLen.
func OptimizeIntervals(ivs []Interval, refLen func(refID int) int) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	resolved := make([]Interval, len(ivs))
	for i, iv := range ivs {
		if iv.End == 0 {
			iv.End = refLen(iv.RefID)
		}
		resolved[i] = iv
	}
	sort.Slice(resolved, func(i, j int) bool {
		a, b := resolved[i], resolved[j]
		if a.RefID != b.RefID {
			return a.RefID < b.RefID
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	out := make([]Interval, 0, len(resolved))
	out = append(out, resolved[0])
	for _, iv := range resolved[1:] {
		last := &out[len(out)-1]
		if iv.RefID == last.RefID && iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
