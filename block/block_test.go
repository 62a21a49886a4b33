package block

import (
	"bytes"
	"io"
	"testing"

	"github.com/seqarc/gsa/voffset"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestWriterReaderRoundTrip(c *check.C) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 6)

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 4000)
	n, err := w.Write(payload)
	c.Assert(err, check.Equals, nil)
	c.Check(n, check.Equals, len(payload))
	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.Equals, nil)

	got, err := io.ReadAll(r)
	c.Assert(err, check.Equals, nil)
	c.Check(got, check.DeepEquals, payload)
}

func (s *S) TestWriterFlushBoundaryIsVirtualOffsetAligned(c *check.C) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 6)

	_, err := w.Write([]byte("abc"))
	c.Assert(err, check.Equals, nil)
	firstBoundary, err := w.Flush()
	c.Assert(err, check.Equals, nil)
	c.Check(firstBoundary.Block, check.Equals, uint16(0))

	_, err = w.Write([]byte("def"))
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.Equals, nil)
	c.Assert(r.Seek(firstBoundary), check.Equals, nil)
	rest, err := io.ReadAll(r)
	c.Assert(err, check.Equals, nil)
	c.Check(string(rest), check.Equals, "def")
}

func (s *S) TestReaderSeekToMidBlockOffset(c *check.C) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 6)
	_, err := w.Write([]byte("0123456789"))
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.Equals, nil)
	err = r.Seek(voffset.Offset{File: 0, Block: 5})
	c.Assert(err, check.Equals, nil)

	got, err := io.ReadAll(r)
	c.Assert(err, check.Equals, nil)
	c.Check(string(got), check.Equals, "56789")
}
