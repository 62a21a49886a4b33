package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/xerrors"
)

// maxCigarOps is the largest operation count representable in the
// fixed nCigarOp field; CIGARs longer than this are
// overflowed into a two-operation sentinel plus a CG attribute.
const maxCigarOps = 0xffff

// cigarTag is the attribute carrying the real CIGAR when the on-disk
// CIGAR field holds the long-CIGAR sentinel.
var cigarTag = record.NewTag("CG")

// EncodeCigarOps packs a Cigar into its on-disk word array, with no
// overflow handling; used both for the record's own CIGAR field and
// for the CG attribute's array payload.
func EncodeCigarOps(c record.Cigar) []byte {
	out := make([]byte, 4*len(c))
	for i, op := range c {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(op))
	}
	return out
}

// DecodeCigarOps unpacks a raw on-disk word array into a Cigar.
func DecodeCigarOps(b []byte) (record.Cigar, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("codec: cigar byte length %d not a multiple of 4", len(b))
	}
	c := make(record.Cigar, len(b)/4)
	for i := range c {
		c[i] = record.Op(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return c, nil
}

// sentinelCigar builds the two-operation placeholder CIGAR (spec
// §4.3: readLen S, refLen N) that stands in a record's fixed CIGAR
// field when the true CIGAR overflows maxCigarOps operations.
func sentinelCigar(c record.Cigar) record.Cigar {
	return record.Cigar{
		record.NewOp(record.OpSoftClip, c.ReadLength()),
		record.NewOp(record.OpSkipped, c.ReferenceLength()),
	}
}

// isSentinelCigar reports whether c has the shape written by
// sentinelCigar: exactly a soft-clip followed by a skip.
func isSentinelCigar(c record.Cigar) bool {
	return len(c) == 2 && c[0].Type() == record.OpSoftClip && c[1].Type() == record.OpSkipped
}

// encodeCigarField returns the bytes for the record's fixed CIGAR
// slot, and, when c overflows maxCigarOps operations, the CG
// attribute that must be appended to carry the real CIGAR.
func encodeCigarField(c record.Cigar) (field []byte, overflow *record.Attr) {
	if len(c) <= maxCigarOps {
		return EncodeCigarOps(c), nil
	}
	words := make([]int64, len(c))
	for i, op := range c {
		words[i] = int64(uint32(op))
	}
	attr := record.NewUintArray(cigarTag, record.TypeUint32, toUint64Slice(words))
	return EncodeCigarOps(sentinelCigar(c)), &attr
}

func toUint64Slice(v []int64) []uint64 {
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return out
}

// resolveCigarField reverses encodeCigarField: given the decoded
// on-disk CIGAR, the record's attributes, the record's name (for
// error context) and its read length, returns the real CIGAR and the
// attributes with any CG sentinel-overflow tag removed.
//
// Per spec §4.3, the sentinel shape alone (S, N) is not sufficient:
// the S operator's length must equal readLen (or readLen must be 0),
// and once CG is decoded its implied read/reference lengths must
// agree with the sentinel's; any mismatch is a fatal decoding error,
// not a silently-accepted substitution.
func resolveCigarField(field record.Cigar, attrs record.Attrs, recordName string, readLen int) (record.Cigar, record.Attrs, error) {
	if !isSentinelCigar(field) {
		return field, attrs, nil
	}
	if readLen != 0 && field[0].Len() != readLen {
		// Shape matches but the soft-clip length disagrees with readLen:
		// this is a literal two-operation CIGAR, not an overflow marker.
		return field, attrs, nil
	}
	cg, ok := attrs.Get(cigarTag)
	if !ok {
		return field, attrs, nil
	}
	words, ok := cg.IntArray()
	if !ok {
		return field, attrs, nil
	}
	real := make(record.Cigar, len(words))
	for i, w := range words {
		real[i] = record.Op(uint32(w))
	}
	sentinelReadLen, sentinelRefLen := field[0].Len(), field[1].Len()
	if real.ReadLength() != sentinelReadLen || real.ReferenceLength() != sentinelRefLen {
		return nil, nil, xerrors.NewValidationError(xerrors.KindSentinelMismatch, recordName, -1,
			fmt.Errorf("sentinel cigar implies readLen=%d refLen=%d but CG attribute's cigar has readLen=%d refLen=%d",
				sentinelReadLen, sentinelRefLen, real.ReadLength(), real.ReferenceLength()))
	}
	return real, attrs.Without(cigarTag), nil
}
