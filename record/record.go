// Package record defines the in-memory aligned-record data model:
// AlignmentRecord, its CIGAR, flags, nibble-packed bases,
// qualities and typed attributes. It is a pure data model — the binary
// codec that serializes it lives in package codec. The indexing bin is
// not computed here: codec and indexer derive it through package bin
// from Pos and End.
package record

import (
	"fmt"
)

// AlignmentRecord is one aligned (or unaligned) read.
type AlignmentRecord struct {
	Name  string
	Flags Flags

	Ref    *Reference
	Pos    int // 0-based leftmost mapped position, -1 if unplaced.
	MapQ   byte
	Cigar  Cigar

	MateRef        *Reference
	MatePos        int
	TemplateLength int

	Bases     Bases
	Qualities Qualities

	Attrs Attrs
}

const maxTemplateLength = 1 << 29

// IsPlaced reports whether the record has a reference and position
// (independent of the Unmapped flag: a read can be placed but marked
// unmapped, e.g. an unmapped mate stored near its mapped partner).
func (r *AlignmentRecord) IsPlaced() bool {
	return r.Ref != nil && r.Pos != -1
}

// IsMapped reports whether the Unmapped flag is clear.
func (r *AlignmentRecord) IsMapped() bool {
	return r.Flags&Unmapped == 0
}

// RefID returns the 0-based reference index, or -1 if unplaced.
func (r *AlignmentRecord) RefID() int { return r.Ref.ID() }

// Start returns the 0-based leftmost mapped reference position.
func (r *AlignmentRecord) Start() int { return r.Pos }

// End returns the position one past the highest reference-consuming
// coordinate of the alignment (the half-open interval [Start,End)
// used throughout the binning and indexing machinery).
func (r *AlignmentRecord) End() int {
	return r.Pos + r.Cigar.ReferenceLength()
}

// IsValid checks the record invariants: template length bound, CIGAR
// structural validity, and CIGAR/sequence length agreement for mapped
// records.
func (r *AlignmentRecord) IsValid() bool {
	if r.TemplateLength < -maxTemplateLength || r.TemplateLength > maxTemplateLength {
		return false
	}
	if !r.Cigar.IsValid() {
		return false
	}
	if r.IsMapped() {
		if len(r.Cigar) == 0 {
			return false
		}
		if r.Bases.Length != 0 && r.Cigar.ReadLength() != r.Bases.Length {
			return false
		}
	}
	if len(r.Qualities) != 0 && len(r.Qualities) != r.Bases.Length {
		return false
	}
	return true
}

func (r *AlignmentRecord) String() string {
	return fmt.Sprintf("%s %v %v %d %s:%d..%d %s:%d %d",
		r.Name, r.Flags, r.Cigar, r.MapQ, r.Ref.Name(), r.Pos, r.End(),
		r.MateRef.Name(), r.MatePos, r.TemplateLength)
}

// validPos reports whether p is a legal 0-based coordinate: -1
// (unplaced) or non-negative.
func validPos(p int) bool { return p >= -1 }

// NewRecord builds and validates an AlignmentRecord the way
// sam.NewRecord does: reject inconsistent placement (a position
// without a reference, or vice versa) up front rather than deferring
// to the codec.
func NewRecord(name string, ref, mateRef *Reference, pos, matePos, templateLen int, mapQ byte, cigar Cigar, bases []byte, qual []byte, attrs Attrs) (*AlignmentRecord, error) {
	if len(name) == 0 || len(name) > 254 {
		return nil, fmt.Errorf("record: name absent or too long")
	}
	if !validPos(pos) || !validPos(matePos) {
		return nil, fmt.Errorf("record: position out of range")
	}
	if templateLen < -maxTemplateLength || templateLen > maxTemplateLength {
		return nil, fmt.Errorf("record: template length out of range")
	}
	if ref == nil && pos != -1 {
		return nil, fmt.Errorf("record: position set without a reference")
	}
	if mateRef == nil && matePos != -1 {
		return nil, fmt.Errorf("record: mate position set without a mate reference")
	}
	if ref != nil && pos == -1 {
		return nil, fmt.Errorf("record: reference set without a position")
	}
	if mateRef != nil && matePos == -1 {
		return nil, fmt.Errorf("record: mate reference set without a mate position")
	}
	if qual != nil && len(qual) != len(bases) {
		return nil, fmt.Errorf("record: sequence/quality length mismatch")
	}
	return &AlignmentRecord{
		Name:           name,
		Ref:            ref,
		MateRef:        mateRef,
		Pos:            pos,
		MatePos:        matePos,
		TemplateLength: templateLen,
		MapQ:           mapQ,
		Cigar:          cigar,
		Bases:          NewBases(bases),
		Qualities:      Qualities(qual),
		Attrs:          attrs,
	}, nil
}

// Tag is a convenience lookup equivalent to r.Attrs.Get(tag).
func (r *AlignmentRecord) Tag(tag Tag) (Attr, bool) { return r.Attrs.Get(tag) }

