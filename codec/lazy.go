package codec

import (
	"errors"

	"github.com/seqarc/gsa/record"
)

// Lazy wraps one on-disk record, deferring decode until a field is
// actually requested. Iterating records that are
// only being re-emitted unchanged — the common case for an indexer
// that never inspects sequence or attributes — never pays the decode
// cost.
//
// A Lazy is not safe for concurrent use: Record caches the decoded
// record in it in place.
type Lazy struct {
	raw    []byte
	dict   *record.Dictionary
	rec    *record.AlignmentRecord
	refID  int32
	pos    int32
	binNum uint16
}

// NewLazy wraps the on-disk bytes of one record without decoding them.
// It reads only the refID/pos/bin fields of the fixed header, which
// every index consumer needs regardless of whether the record body is
// ever decoded.
func NewLazy(raw []byte, dict *record.Dictionary) (*Lazy, error) {
	if len(raw) < fixedHeaderSize {
		return nil, errTruncatedHeader
	}
	return &Lazy{
		raw:    raw,
		dict:   dict,
		refID:  int32(le32(raw[0:])),
		pos:    int32(le32(raw[4:])),
		binNum: uint16(le16(raw[10:])),
	}, nil
}

// RefID returns the 0-based reference index without decoding the rest
// of the record.
func (l *Lazy) RefID() int { return int(l.refID) }

// Pos returns the 0-based leftmost position without decoding the rest
// of the record.
func (l *Lazy) Pos() int { return int(l.pos) }

// Bin returns the on-disk bin number without decoding the rest of the
// record.
func (l *Lazy) Bin() uint32 { return uint32(l.binNum) }

// Record returns the fully decoded record, decoding and caching it on
// first call.
func (l *Lazy) Record() (*record.AlignmentRecord, error) {
	if l.rec == nil {
		rec, err := Decode(l.raw, l.dict)
		if err != nil {
			return nil, err
		}
		l.rec = rec
	}
	return l.rec, nil
}

// Raw returns the record's undecoded on-disk bytes, e.g. for a
// pass-through copy that never needs the decoded form.
func (l *Lazy) Raw() []byte { return l.raw }

// Invalidate discards any cached decoded record. Callers that mutate
// the bytes returned by Raw must call Invalidate before the next
// Record call, or they will observe stale cached fields.
func (l *Lazy) Invalidate() { l.rec = nil }

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

var errTruncatedHeader = errors.New("codec: truncated fixed header")
