package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/xerrors"
)

// fixedHeaderSize is the width of the fixed portion of an encoded
// record, laid out the way bam/reader.go's bamRecordFixed block
// decodes: refID, pos, nameLen, mapq, bin, nCigarOp, flag, readLen,
// mateRefID, matePos, tlen.
const fixedHeaderSize = 32

// unmappedNoCoordinateBin is the BAM-format convention for the bin of
// a record with neither a reference nor a position.
const unmappedNoCoordinateBin = 4680

// Encode packs rec into its on-disk variable-length byte layout (spec
// §4.2), resolving long-CIGAR overflow (§4.3) and serializing
// attributes (§4.4). Reference ids are taken from rec.Ref.ID() and
// rec.MateRef.ID(); a nil reference is written as -1.
func Encode(rec *record.AlignmentRecord) ([]byte, error) {
	if !rec.IsValid() {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("record %q fails structural validation", rec.Name))
	}

	cigarField, overflow := encodeCigarField(rec.Cigar)
	nCigarOp := len(rec.Cigar)
	if overflow != nil {
		nCigarOp = 2
	}
	if nCigarOp > maxCigarOps {
		return nil, xerrors.NewUsageError("cigar of %d operations exceeds the %d-operation field even after overflow encoding", nCigarOp, maxCigarOps)
	}

	name := append([]byte(rec.Name), 0)
	if len(name) > 0xff {
		return nil, xerrors.NewUsageError("record name %q too long to encode", rec.Name)
	}

	recBin := unmappedNoCoordinateBin
	if rec.IsPlaced() {
		recBin = int(bin.Default.For(rec.Pos, rec.End()))
	}

	attrs := rec.Attrs
	if overflow != nil {
		attrs = append(append(record.Attrs{}, attrs...), *overflow)
	}

	readLen := rec.Bases.Length
	out := make([]byte, fixedHeaderSize, fixedHeaderSize+len(name)+len(cigarField)+len(rec.Bases.Packed())+readLen+64)
	binary.LittleEndian.PutUint32(out[0:], uint32(int32(rec.RefID())))
	binary.LittleEndian.PutUint32(out[4:], uint32(int32(rec.Pos)))
	out[8] = byte(len(name))
	out[9] = rec.MapQ
	binary.LittleEndian.PutUint16(out[10:], uint16(recBin))
	binary.LittleEndian.PutUint16(out[12:], uint16(nCigarOp))
	binary.LittleEndian.PutUint16(out[14:], uint16(rec.Flags))
	binary.LittleEndian.PutUint32(out[16:], uint32(int32(readLen)))
	binary.LittleEndian.PutUint32(out[20:], uint32(int32(rec.MateRef.ID())))
	binary.LittleEndian.PutUint32(out[24:], uint32(int32(rec.MatePos)))
	binary.LittleEndian.PutUint32(out[28:], uint32(int32(rec.TemplateLength)))

	out = append(out, name...)
	out = append(out, cigarField...)
	out = append(out, rec.Bases.Packed()...)

	qual := rec.Qualities
	if len(qual) == 0 && readLen > 0 {
		qual = record.NewAbsentQualities(readLen)
	}
	out = append(out, qual...)

	for _, a := range attrs {
		var err error
		out, err = EncodeAttr(out, a)
		if err != nil {
			return nil, xerrors.NewFormatError(fmt.Sprintf("record %q attribute %s", rec.Name, a.Tag), err)
		}
	}
	return out, nil
}

// Decode unpacks the on-disk byte layout written by Encode back into
// an AlignmentRecord, resolving reference pointers against dict and
// reversing any long-CIGAR overflow encoding.
func Decode(b []byte, dict *record.Dictionary) (*record.AlignmentRecord, error) {
	if len(b) < fixedHeaderSize {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("truncated fixed header: %d bytes", len(b)))
	}
	refID := int32(binary.LittleEndian.Uint32(b[0:]))
	pos := int32(binary.LittleEndian.Uint32(b[4:]))
	nameLen := int(b[8])
	mapQ := b[9]
	nCigarOp := int(binary.LittleEndian.Uint16(b[12:]))
	flags := record.Flags(binary.LittleEndian.Uint16(b[14:]))
	readLen := int32(binary.LittleEndian.Uint32(b[16:]))
	mateRefID := int32(binary.LittleEndian.Uint32(b[20:]))
	matePos := int32(binary.LittleEndian.Uint32(b[24:]))
	tlen := int32(binary.LittleEndian.Uint32(b[28:]))

	if nameLen == 0 {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("nameLen is 0"))
	}
	if readLen < 0 {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("negative readLen %d", readLen))
	}
	rest := b[fixedHeaderSize:]
	if len(rest) < nameLen {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("truncated name"))
	}
	name := string(rest[:nameLen-1]) // drop the trailing NUL.
	rest = rest[nameLen:]

	cigarBytes := nCigarOp * 4
	if len(rest) < cigarBytes {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("truncated cigar"))
	}
	cigarField, err := DecodeCigarOps(rest[:cigarBytes])
	if err != nil {
		return nil, xerrors.NewFormatError("record", err)
	}
	rest = rest[cigarBytes:]

	seqBytes := int((readLen + 1) / 2)
	if len(rest) < seqBytes {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("truncated sequence"))
	}
	bases := record.BasesFromPacked(append([]byte(nil), rest[:seqBytes]...), int(readLen))
	rest = rest[seqBytes:]

	if len(rest) < int(readLen) {
		return nil, xerrors.NewFormatError("record", fmt.Errorf("truncated qualities"))
	}
	qual := record.Qualities(append([]byte(nil), rest[:readLen]...))
	rest = rest[readLen:]

	attrs, err := DecodeAttrs(rest)
	if err != nil {
		return nil, err
	}
	cigar, attrs, err := resolveCigarField(cigarField, attrs, name, int(readLen))
	if err != nil {
		return nil, err
	}

	rec := &record.AlignmentRecord{
		Name:           name,
		Flags:          flags,
		Ref:            dict.Ref(int(refID)),
		Pos:            int(pos),
		MapQ:           mapQ,
		Cigar:          cigar,
		MateRef:        dict.Ref(int(mateRefID)),
		MatePos:        int(matePos),
		TemplateLength: int(tlen),
		Bases:          bases,
		Qualities:      qual,
		Attrs:          attrs,
	}
	if qual.AllAbsent() {
		rec.Qualities = nil
	}
	return rec, nil
}
