// Package indexer implements the indexer: it consumes aligned
// records in coordinate order and builds the linear index and
// binning index for every reference.
//
// Grounded on the internal.Index.Add (internal/index.go),
// generalized into an explicit state machine
// instead of the implicit "grow Refs as needed" approach:
// AwaitingFirst -> Open(currentRef) -> Finalized. The per-reference
// working set lives on index.Reference and is released (sealed) on
// every state transition, so no partially-built reference survives
// past the point its successor starts.
package indexer

import (
	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/index"
	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/voffset"
	"github.com/seqarc/gsa/xerrors"
)

type state int

const (
	stateAwaitingFirst state = iota
	stateOpen
	stateFinalized
)

// Indexer builds the per-reference linear/binning indexes for one
// record stream. Records must be fed through Add in non-decreasing
// (refID, pos) order; Finish seals every reference,
// including references with no indexed records, up to NumRefs.
type Indexer struct {
	Scheme   bin.Scheme
	NumRefs  int

	state state

	currentRefID int
	current      *index.Reference
	refs         []*index.Reference // finalized references, 0..currentRefID-1.

	noCoordinateCount uint64

	lastRefID, lastPos int
}

// New returns an Indexer for a sequence dictionary of numRefs
// references, binning with scheme (bin.Default for the BAI format).
func New(scheme bin.Scheme, numRefs int) *Indexer {
	return &Indexer{Scheme: scheme, NumRefs: numRefs, lastRefID: -1}
}

// Add indexes one record, located at virtual offset vo (the offset of
// the start of its encoded byte run in the underlying block stream).
func (ix *Indexer) Add(rec *record.AlignmentRecord, vo voffset.Offset) error {
	if ix.state == stateFinalized {
		return xerrors.NewUsageError("indexer: Add called after Finish")
	}

	refID := rec.RefID()
	pos := rec.Pos
	if !rec.IsPlaced() {
		ix.noCoordinateCount++
		return nil
	}
	if refID < 0 || refID >= ix.NumRefs {
		return xerrors.NewUsageError("indexer: record %q refers to reference %d not present in the %d-reference sequence dictionary", rec.Name, refID, ix.NumRefs)
	}
	if refID < ix.lastRefID || (refID == ix.lastRefID && pos < ix.lastPos) {
		return xerrors.NewUsageError("indexer: records must arrive coordinate-sorted: record %q at (%d,%d) follows (%d,%d)", rec.Name, refID, pos, ix.lastRefID, ix.lastPos)
	}
	ix.lastRefID, ix.lastPos = refID, pos

	if ix.state == stateAwaitingFirst || refID > ix.currentRefID {
		if err := ix.advanceTo(refID); err != nil {
			return err
		}
	}

	refLen := rec.Cigar.ReferenceLength()
	end := pos + refLen
	if end <= pos {
		end = pos + 1 // half-open clamp for zero-length alignments.
	}
	b := ix.Scheme.For(pos, end)

	end1 := vo
	end1.Block++ // chunk covers exactly this one record.
	chunk := voffset.Chunk{Begin: vo, End: end1}

	ix.current.AddChunk(b, chunk)

	w := ix.Scheme.Window(pos)
	lastW := ix.Scheme.Window(end - 1)
	for win := w; win <= lastW; win++ {
		ix.current.UpdateLinear(win, vo)
	}

	if rec.IsMapped() {
		ix.current.AddMapped(chunk)
	} else {
		ix.current.AddUnmapped(chunk)
	}
	return nil
}

// advanceTo seals the current reference (if any) and every skipped
// reference between it and refID, then opens refID as the new
// current reference.
func (ix *Indexer) advanceTo(refID int) error {
	if ix.state == stateAwaitingFirst {
		ix.state = stateOpen
		ix.currentRefID = 0
	}
	for ix.currentRefID < refID {
		ix.sealCurrent()
		ix.currentRefID++
	}
	ix.current = index.NewReference()
	return nil
}

func (ix *Indexer) sealCurrent() {
	if ix.current == nil {
		ix.current = index.NewReference()
	}
	ix.current.Seal()
	ix.refs = append(ix.refs, ix.current)
	ix.current = nil
}

// Finish seals every remaining reference up to NumRefs (emitting empty
// references for any never touched by Add) and transitions the
// Indexer to Finalized. It returns the finalized per-reference indexes
// in reference order and the count of records with no reference at
// all (the file-level tail).
func (ix *Indexer) Finish() ([]*index.Reference, uint64, error) {
	if ix.state == stateFinalized {
		return nil, 0, xerrors.NewUsageError("indexer: Finish called twice")
	}
	if ix.state == stateAwaitingFirst {
		ix.state = stateOpen
		ix.currentRefID = 0
	}
	if ix.current != nil {
		ix.sealCurrent()
		ix.currentRefID++
	}
	for ix.currentRefID < ix.NumRefs {
		ix.sealCurrent()
		ix.currentRefID++
	}
	ix.state = stateFinalized
	return ix.refs, ix.noCoordinateCount, nil
}
