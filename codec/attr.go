// Package codec implements the binary record codec, the CIGAR codec
// including long-CIGAR overflow handling, and the typed attribute
// codec.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/xerrors"
)

// elemSize returns the on-disk byte width of one element of the given
// scalar attribute type, or -1 for the variable-length types (Z, H, B
// itself is handled separately since its element size depends on its
// subtype).
func elemSize(t record.AttrType) int {
	switch t {
	case record.TypeASCII, record.TypeInt8, record.TypeUint8:
		return 1
	case record.TypeInt16, record.TypeUint16:
		return 2
	case record.TypeInt32, record.TypeUint32, record.TypeFloat32:
		return 4
	default:
		return -1
	}
}

// EncodeAttr appends the on-disk encoding of a to dst and returns the
// extended slice.
func EncodeAttr(dst []byte, a record.Attr) ([]byte, error) {
	dst = append(dst, a.Tag[0], a.Tag[1], byte(a.Type))
	switch a.Type {
	case record.TypeASCII:
		v, _ := a.ASCII()
		dst = append(dst, v)
	case record.TypeInt8:
		v, _ := a.Int()
		dst = append(dst, byte(int8(v)))
	case record.TypeUint8:
		v, _ := a.Uint()
		dst = append(dst, byte(v))
	case record.TypeInt16:
		v, _ := a.Int()
		dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(v)))
	case record.TypeUint16:
		v, _ := a.Uint()
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	case record.TypeInt32:
		v, _ := a.Int()
		dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(v)))
	case record.TypeUint32:
		v, _ := a.Uint()
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
	case record.TypeFloat32:
		v, _ := a.Float()
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	case record.TypeString:
		s, _ := a.String()
		dst = append(dst, s...)
		dst = append(dst, 0)
	case record.TypeHex:
		h, _ := a.Hex()
		enc := make([]byte, hex.EncodedLen(len(h)))
		hex.Encode(enc, h)
		dst = append(dst, enc...)
		dst = append(dst, 0)
	case record.TypeArray:
		dst = append(dst, byte(a.ArrayElemType))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(a.Len()))
		if a.ArrayElemType == record.TypeFloat32 {
			vals, _ := a.FloatArray()
			for _, v := range vals {
				dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
			}
			break
		}
		vals, _ := a.IntArray()
		for _, v := range vals {
			switch a.ArrayElemType {
			case record.TypeInt8, record.TypeUint8:
				dst = append(dst, byte(v))
			case record.TypeInt16, record.TypeUint16:
				dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
			case record.TypeInt32, record.TypeUint32:
				dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
			default:
				return nil, fmt.Errorf("codec: unsupported array element type %q", a.ArrayElemType)
			}
		}
	default:
		return nil, fmt.Errorf("codec: unknown attribute type %q", a.Type)
	}
	return dst, nil
}

// DecodeAttrs parses the sequential tag/type/value attribute run
// trailing a record, returning every Attr found.
func DecodeAttrs(b []byte) (record.Attrs, error) {
	var attrs record.Attrs
	i := 0
	for i < len(b) {
		if i+3 > len(b) {
			return nil, xerrors.NewFormatError("attributes", fmt.Errorf("trailing %d byte(s) too short for a tag/type header", len(b)-i))
		}
		tag := record.Tag{b[i], b[i+1]}
		typ := record.AttrType(b[i+2])
		rest := b[i+3:]
		a, n, err := decodeOneAttr(tag, typ, rest)
		if err != nil {
			return nil, xerrors.NewFormatError(fmt.Sprintf("attribute %s", tag), err)
		}
		attrs = append(attrs, a)
		i += 3 + n
	}
	return attrs, nil
}

func decodeOneAttr(tag record.Tag, typ record.AttrType, b []byte) (record.Attr, int, error) {
	switch typ {
	case record.TypeASCII:
		if len(b) < 1 {
			return record.Attr{}, 0, fmt.Errorf("truncated ASCII value")
		}
		return record.NewASCII(tag, b[0]), 1, nil
	case record.TypeInt8:
		if len(b) < 1 {
			return record.Attr{}, 0, fmt.Errorf("truncated int8 value")
		}
		a, err := record.NewInt(tag, int64(int8(b[0])))
		return a, 1, err
	case record.TypeUint8:
		if len(b) < 1 {
			return record.Attr{}, 0, fmt.Errorf("truncated uint8 value")
		}
		a, err := record.NewUint(tag, uint64(b[0]))
		return a, 1, err
	case record.TypeInt16:
		if len(b) < 2 {
			return record.Attr{}, 0, fmt.Errorf("truncated int16 value")
		}
		a, err := record.NewInt(tag, int64(int16(binary.LittleEndian.Uint16(b))))
		return a, 2, err
	case record.TypeUint16:
		if len(b) < 2 {
			return record.Attr{}, 0, fmt.Errorf("truncated uint16 value")
		}
		a, err := record.NewUint(tag, uint64(binary.LittleEndian.Uint16(b)))
		return a, 2, err
	case record.TypeInt32:
		if len(b) < 4 {
			return record.Attr{}, 0, fmt.Errorf("truncated int32 value")
		}
		a, err := record.NewInt(tag, int64(int32(binary.LittleEndian.Uint32(b))))
		return a, 4, err
	case record.TypeUint32:
		if len(b) < 4 {
			return record.Attr{}, 0, fmt.Errorf("truncated uint32 value")
		}
		a, err := record.NewUint(tag, uint64(binary.LittleEndian.Uint32(b)))
		return a, 4, err
	case record.TypeFloat32:
		if len(b) < 4 {
			return record.Attr{}, 0, fmt.Errorf("truncated float value")
		}
		return record.NewFloat(tag, math.Float32frombits(binary.LittleEndian.Uint32(b))), 4, nil
	case record.TypeString:
		j := indexZero(b)
		if j < 0 {
			return record.Attr{}, 0, fmt.Errorf("unterminated Z value")
		}
		return record.NewString(tag, string(b[:j])), j + 1, nil
	case record.TypeHex:
		j := indexZero(b)
		if j < 0 {
			return record.Attr{}, 0, fmt.Errorf("unterminated H value")
		}
		decoded := make([]byte, hex.DecodedLen(j))
		if _, err := hex.Decode(decoded, b[:j]); err != nil {
			return record.Attr{}, 0, fmt.Errorf("invalid hex value: %w", err)
		}
		return record.NewHex(tag, decoded), j + 1, nil
	case record.TypeArray:
		if len(b) < 5 {
			return record.Attr{}, 0, fmt.Errorf("truncated array header")
		}
		sub := record.AttrType(b[0])
		n := int(binary.LittleEndian.Uint32(b[1:5]))
		width := elemSize(sub)
		if width < 0 {
			return record.Attr{}, 0, fmt.Errorf("unsupported array subtype %q", sub)
		}
		body := b[5:]
		need := n * width
		if len(body) < need {
			return record.Attr{}, 0, fmt.Errorf("truncated array body")
		}
		total := 5 + need
		if sub == record.TypeFloat32 {
			vals := make([]float32, n)
			for i := 0; i < n; i++ {
				vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
			}
			return record.NewFloatArray(tag, vals), total, nil
		}
		vals := make([]int64, n)
		signed := sub == record.TypeInt8 || sub == record.TypeInt16 || sub == record.TypeInt32
		for i := 0; i < n; i++ {
			switch sub {
			case record.TypeInt8:
				vals[i] = int64(int8(body[i]))
			case record.TypeUint8:
				vals[i] = int64(body[i])
			case record.TypeInt16:
				vals[i] = int64(int16(binary.LittleEndian.Uint16(body[i*2:])))
			case record.TypeUint16:
				vals[i] = int64(binary.LittleEndian.Uint16(body[i*2:]))
			case record.TypeInt32:
				vals[i] = int64(int32(binary.LittleEndian.Uint32(body[i*4:])))
			case record.TypeUint32:
				vals[i] = int64(binary.LittleEndian.Uint32(body[i*4:]))
			}
		}
		if signed {
			return record.NewIntArray(tag, sub, vals), total, nil
		}
		uvals := make([]uint64, n)
		for i, v := range vals {
			uvals[i] = uint64(v)
		}
		return record.NewUintArray(tag, sub, uvals), total, nil
	default:
		return record.Attr{}, 0, fmt.Errorf("unknown attribute type %q", typ)
	}
}

func indexZero(b []byte) int {
	for i, v := range b {
		if v == 0 {
			return i
		}
	}
	return -1
}
