package record

import (
	"fmt"
)

// Tag is a two-character attribute tag, e.g. "NM", "CG".
type Tag [2]byte

// NewTag returns the Tag for a 2-byte string, panicking if s is not
// exactly 2 bytes long (mirrors the sam.NewTag panic-on-abuse
// idiom; malformed tags from untrusted input must be rejected before
// reaching this constructor via xerrors.UsageError).
func NewTag(s string) Tag {
	if len(s) != 2 {
		panic("record: tag must be exactly 2 bytes")
	}
	return Tag{s[0], s[1]}
}

func (t Tag) String() string { return string(t[:]) }

// AttrType is the one-byte type code identifying an attribute's value.
type AttrType byte

const (
	TypeASCII    AttrType = 'A'
	TypeInt8     AttrType = 'c'
	TypeUint8    AttrType = 'C'
	TypeInt16    AttrType = 's'
	TypeUint16   AttrType = 'S'
	TypeInt32    AttrType = 'i'
	TypeUint32   AttrType = 'I'
	TypeFloat32  AttrType = 'f'
	TypeString   AttrType = 'Z'
	TypeHex      AttrType = 'H'
	TypeArray    AttrType = 'B'
)

// Attr is a tagged, typed attribute value.
//
// Exactly one of the typed fields is meaningful, selected by Type.
// For TypeArray, integer elements are held widened to int64 and float
// elements as float32, read back through IntArray and FloatArray;
// ArraySigned records whether an integer array subtype is signed, a
// detail the raw SAM type letter already encodes but which callers of
// the typed accessors need without re-inspecting ArrayElemType.
type Attr struct {
	Tag  Tag
	Type AttrType

	ascii   byte
	i64     int64
	u64     uint64
	f32     float32
	text    []byte // TypeString (NUL-terminated ASCII) or TypeHex (decoded bytes).

	ArrayElemType AttrType
	ArraySigned   bool
	arrayLen      int
	arrayInt      []int64
	arrayFloat    []float32
}

// NewASCII returns a TypeASCII Attr.
func NewASCII(tag Tag, v byte) Attr { return Attr{Tag: tag, Type: TypeASCII, ascii: v} }

// NewInt returns the narrowest signed integer Attr (c, s or i) that
// can hold v, or an error if v does not fit in an int32.
func NewInt(tag Tag, v int64) (Attr, error) {
	switch {
	case v >= -0x80 && v <= 0x7f:
		return Attr{Tag: tag, Type: TypeInt8, i64: v}, nil
	case v >= -0x8000 && v <= 0x7fff:
		return Attr{Tag: tag, Type: TypeInt16, i64: v}, nil
	case v >= -0x80000000 && v <= 0x7fffffff:
		return Attr{Tag: tag, Type: TypeInt32, i64: v}, nil
	default:
		return Attr{}, fmt.Errorf("record: signed integer %d out of range for an attribute", v)
	}
}

// NewUint returns the narrowest unsigned integer Attr (C, S or I) that
// can hold v, or an error if v does not fit in a uint32.
func NewUint(tag Tag, v uint64) (Attr, error) {
	switch {
	case v <= 0xff:
		return Attr{Tag: tag, Type: TypeUint8, u64: v}, nil
	case v <= 0xffff:
		return Attr{Tag: tag, Type: TypeUint16, u64: v}, nil
	case v <= 0xffffffff:
		return Attr{Tag: tag, Type: TypeUint32, u64: v}, nil
	default:
		return Attr{}, fmt.Errorf("record: unsigned integer %d out of range for an attribute", v)
	}
}

// NewFloat returns a TypeFloat32 Attr.
func NewFloat(tag Tag, v float32) Attr { return Attr{Tag: tag, Type: TypeFloat32, f32: v} }

// NewString returns a TypeString Attr.
func NewString(tag Tag, v string) Attr { return Attr{Tag: tag, Type: TypeString, text: []byte(v)} }

// NewHex returns a TypeHex Attr from already-decoded bytes.
func NewHex(tag Tag, v []byte) Attr { return Attr{Tag: tag, Type: TypeHex, text: v} }

// NewIntArray returns a TypeArray Attr of signed integers, stored at
// the given element width (one of TypeInt8, TypeInt16, TypeInt32).
func NewIntArray(tag Tag, elem AttrType, v []int64) Attr {
	return Attr{Tag: tag, Type: TypeArray, ArrayElemType: elem, ArraySigned: true, arrayLen: len(v), arrayInt: v}
}

// NewUintArray returns a TypeArray Attr of unsigned integers, stored
// at the given element width (one of TypeUint8, TypeUint16,
// TypeUint32).
func NewUintArray(tag Tag, elem AttrType, v []uint64) Attr {
	ints := make([]int64, len(v))
	for i, x := range v {
		ints[i] = int64(x)
	}
	return Attr{Tag: tag, Type: TypeArray, ArrayElemType: elem, ArraySigned: false, arrayLen: len(v), arrayInt: ints}
}

// NewFloatArray returns a TypeArray Attr of float32 elements.
func NewFloatArray(tag Tag, v []float32) Attr {
	return Attr{Tag: tag, Type: TypeArray, ArrayElemType: TypeFloat32, arrayLen: len(v), arrayFloat: v}
}

// ASCII returns the ASCII value and true if Type is TypeASCII.
func (a Attr) ASCII() (byte, bool) {
	if a.Type != TypeASCII {
		return 0, false
	}
	return a.ascii, true
}

// Int returns the signed integer value for any integer Type, widened
// to int64, and true if Type is an integer type.
func (a Attr) Int() (int64, bool) {
	switch a.Type {
	case TypeInt8, TypeInt16, TypeInt32:
		return a.i64, true
	case TypeUint8, TypeUint16, TypeUint32:
		return int64(a.u64), true
	default:
		return 0, false
	}
}

// Uint returns the unsigned integer value, and true if Type is an
// unsigned integer type.
func (a Attr) Uint() (uint64, bool) {
	if a.Type == TypeUint8 || a.Type == TypeUint16 || a.Type == TypeUint32 {
		return a.u64, true
	}
	return 0, false
}

// Float returns the float32 value, and true if Type is TypeFloat32.
func (a Attr) Float() (float32, bool) {
	if a.Type != TypeFloat32 {
		return 0, false
	}
	return a.f32, true
}

// String returns the text value, and true if Type is TypeString.
func (a Attr) String() (string, bool) {
	if a.Type != TypeString {
		return "", false
	}
	return string(a.text), true
}

// Hex returns the decoded byte value, and true if Type is TypeHex.
func (a Attr) Hex() ([]byte, bool) {
	if a.Type != TypeHex {
		return nil, false
	}
	return a.text, true
}

// Len returns the element count of a TypeArray Attr, or 0 otherwise.
func (a Attr) Len() int { return a.arrayLen }

// IntArray returns the decoded integer elements of a TypeArray Attr
// whose subtype is one of the integer types, and true.
func (a Attr) IntArray() ([]int64, bool) {
	if a.Type != TypeArray || a.ArrayElemType == TypeFloat32 {
		return nil, false
	}
	return a.arrayInt, true
}

// FloatArray returns the decoded float32 elements of a TypeArray Attr
// whose subtype is TypeFloat32, and true.
func (a Attr) FloatArray() ([]float32, bool) {
	if a.Type != TypeArray || a.ArrayElemType != TypeFloat32 {
		return nil, false
	}
	return a.arrayFloat, true
}

// Attrs is an unordered set of attributes attached to a record.
type Attrs []Attr

// Get returns the attribute matching tag, and true, or the zero Attr
// and false.
func (a Attrs) Get(tag Tag) (Attr, bool) {
	for _, v := range a {
		if v.Tag == tag {
			return v, true
		}
	}
	return Attr{}, false
}

// Without returns a copy of a with every attribute matching tag
// removed, used by the codec when it lifts a long-CIGAR CG attribute
// back into the record's Cigar field.
func (a Attrs) Without(tag Tag) Attrs {
	out := make(Attrs, 0, len(a))
	for _, v := range a {
		if v.Tag != tag {
			out = append(out, v)
		}
	}
	return out
}
