package codec

import (
	"testing"

	"github.com/seqarc/gsa/record"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestRecordRoundTrip(c *check.C) {
	dict := record.NewDictionary([]string{"chr1", "chr2"}, []int{1000, 2000})
	ref := dict.Ref(0)
	mate := dict.Ref(1)
	cigar, err := record.ParseCigar([]byte("4M1I5M"))
	c.Assert(err, check.Equals, nil)

	tag, err := record.NewInt(record.NewTag("NM"), 2)
	c.Assert(err, check.Equals, nil)

	rec, err := record.NewRecord("read1", ref, mate, 100, 200, 300, 40, cigar,
		[]byte("ACGTACGTAC"), []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, record.Attrs{tag})
	c.Assert(err, check.Equals, nil)
	rec.Flags = record.Paired | record.Read1

	buf, err := Encode(rec)
	c.Assert(err, check.Equals, nil)

	got, err := Decode(buf, dict)
	c.Assert(err, check.Equals, nil)

	c.Check(got.Name, check.Equals, rec.Name)
	c.Check(got.Flags, check.Equals, rec.Flags)
	c.Check(got.RefID(), check.Equals, rec.RefID())
	c.Check(got.Pos, check.Equals, rec.Pos)
	c.Check(got.MapQ, check.Equals, rec.MapQ)
	c.Check(got.Cigar.String(), check.Equals, rec.Cigar.String())
	c.Check(got.MateRef.ID(), check.Equals, rec.MateRef.ID())
	c.Check(got.MatePos, check.Equals, rec.MatePos)
	c.Check(got.TemplateLength, check.Equals, rec.TemplateLength)
	c.Check(got.Bases.Expand(), check.DeepEquals, rec.Bases.Expand())

	nm, ok := got.Tag(record.NewTag("NM"))
	c.Assert(ok, check.Equals, true)
	v, _ := nm.Int()
	c.Check(v, check.Equals, int64(2))
}

func (s *S) TestRecordRoundTripUnmapped(c *check.C) {
	rec, err := record.NewRecord("orphan", nil, nil, -1, -1, 0, 0, nil, []byte("ACGT"), nil, nil)
	c.Assert(err, check.Equals, nil)
	rec.Flags = record.Unmapped

	buf, err := Encode(rec)
	c.Assert(err, check.Equals, nil)

	got, err := Decode(buf, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(got.IsPlaced(), check.Equals, false)
	c.Check(got.RefID(), check.Equals, -1)
}

func (s *S) TestLongCigarOverflow(c *check.C) {
	ops := make([]record.OpType, 0, 200000)
	for i := 0; i < 100000; i++ {
		ops = append(ops, record.OpMatch, record.OpInsertion)
	}
	cigar := record.RunLengthEncode(ops)
	c.Assert(len(cigar) > maxCigarOps, check.Equals, true)

	rec, err := record.NewRecord("longread", record.NewReference(0, "chr1", 1<<30), nil, 0, -1, 0, 0,
		cigar, make([]byte, cigar.ReadLength()), nil, nil)
	c.Assert(err, check.Equals, nil)

	buf, err := Encode(rec)
	c.Assert(err, check.Equals, nil)

	dict := record.NewDictionary([]string{"chr1"}, []int{1 << 30})
	got, err := Decode(buf, dict)
	c.Assert(err, check.Equals, nil)

	c.Check(got.Cigar.String(), check.Equals, cigar.String())
	_, hasCG := got.Tag(record.NewTag("CG"))
	c.Check(hasCG, check.Equals, false)
}

func (s *S) TestAttrArrayRoundTrip(c *check.C) {
	tag := record.NewTag("ZA")
	a := record.NewIntArray(tag, record.TypeInt16, []int64{-5, 0, 1000})
	buf, err := EncodeAttr(nil, a)
	c.Assert(err, check.Equals, nil)

	attrs, err := DecodeAttrs(buf)
	c.Assert(err, check.Equals, nil)
	c.Assert(len(attrs), check.Equals, 1)

	vals, ok := attrs[0].IntArray()
	c.Assert(ok, check.Equals, true)
	c.Check(vals, check.DeepEquals, []int64{-5, 0, 1000})
}

func (s *S) TestAttrStringAndHexRoundTrip(c *check.C) {
	str := record.NewString(record.NewTag("ZS"), "hello")
	hex := record.NewHex(record.NewTag("ZH"), []byte{0xde, 0xad, 0xbe, 0xef})

	var buf []byte
	var err error
	buf, err = EncodeAttr(buf, str)
	c.Assert(err, check.Equals, nil)
	buf, err = EncodeAttr(buf, hex)
	c.Assert(err, check.Equals, nil)

	attrs, err := DecodeAttrs(buf)
	c.Assert(err, check.Equals, nil)
	c.Assert(len(attrs), check.Equals, 2)

	str2, ok := attrs[0].String()
	c.Assert(ok, check.Equals, true)
	c.Check(str2, check.Equals, "hello")

	h, ok := attrs[1].Hex()
	c.Assert(ok, check.Equals, true)
	c.Check(h, check.DeepEquals, []byte{0xde, 0xad, 0xbe, 0xef})
}

func (s *S) TestLazyFastPathFields(c *check.C) {
	dict := record.NewDictionary([]string{"chr1"}, []int{1000})
	ref := dict.Ref(0)
	cigar, _ := record.ParseCigar([]byte("4M"))
	rec, err := record.NewRecord("r", ref, nil, 42, -1, 0, 10, cigar, []byte("ACGT"), nil, nil)
	c.Assert(err, check.Equals, nil)

	buf, err := Encode(rec)
	c.Assert(err, check.Equals, nil)

	lz, err := NewLazy(buf, dict)
	c.Assert(err, check.Equals, nil)
	c.Check(lz.RefID(), check.Equals, 0)
	c.Check(lz.Pos(), check.Equals, 42)

	got, err := lz.Record()
	c.Assert(err, check.Equals, nil)
	c.Check(got.Name, check.Equals, "r")
}
