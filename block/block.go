// Package block implements the block-compressed record stream
// primitive used throughout the storage engine as the byte-addressable
// substrate virtual offsets point into. Each block is an independent
// gzip member whose header carries the compressed block's own size in
// a "BC" extra subfield — the same convention bgzf.go implements — so
// a reader can skip to any block boundary without inflating the
// blocks before it.
package block

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/seqarc/gsa/voffset"
	"github.com/seqarc/gsa/xerrors"
)

// MaxUncompressedSize is the largest amount of uncompressed data
// packed into one block before it is flushed, matching bgzf.go's
// BlockSize constant.
const MaxUncompressedSize = 0xff00

// MaxBlockSize bounds the compressed-plus-header size of one block;
// block offsets are only unambiguous if every block is
// smaller than this.
const MaxBlockSize = 0x10000

const (
	gzipID1  = 0x1f
	gzipID2  = 0x8b
	cmDeflate = 8
	flgExtra = 4
	osUnknown = 0xff
)

var extraSubfieldTag = [2]byte{'B', 'C'}

// eofMarker is the canonical empty final block every well-formed
// stream ends with, so a truncated download is detectable even
// without a trailing index.
var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff,
	0x06, 0x00, 'B', 'C', 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Writer packs records into fixed-size blocks and writes each as an
// independent gzip member, flushing automatically once a block would
// exceed MaxUncompressedSize.
type Writer struct {
	w       io.Writer
	level   int
	buf     bytes.Buffer // uncompressed bytes pending in the current block.
	written int64         // compressed bytes written to w so far.
	err     error
	closed  bool
}

// NewWriter returns a Writer at compression level, writing compressed
// blocks to w.
func NewWriter(w io.Writer, level int) *Writer {
	return &Writer{w: w, level: level}
}

// Write buffers p, flushing completed blocks to the underlying writer
// as MaxUncompressedSize is reached.
func (bw *Writer) Write(p []byte) (int, error) {
	if bw.err != nil {
		return 0, bw.err
	}
	total := 0
	for len(p) > 0 {
		room := MaxUncompressedSize - bw.buf.Len()
		n := len(p)
		if n > room {
			n = room
		}
		bw.buf.Write(p[:n])
		p = p[n:]
		total += n
		if bw.buf.Len() >= MaxUncompressedSize {
			if err := bw.flushBlock(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// VirtualOffset returns the offset at which the next Write call will
// begin: the compressed byte offset of the block currently being
// filled, combined with how far into its uncompressed bytes Write has
// progressed.
func (bw *Writer) VirtualOffset() voffset.Offset {
	return voffset.Offset{File: bw.written, Block: uint16(bw.buf.Len())}
}

// Flush forces the bytes buffered so far out as one block, even if
// smaller than MaxUncompressedSize, and returns the virtual offset of
// the new block boundary. Callers that need a virtual offset to be
// immediately dereferenceable — e.g. a linear-index entry's minimum
// offset — must Flush before recording it.
func (bw *Writer) Flush() (voffset.Offset, error) {
	if bw.err != nil {
		return voffset.Offset{}, bw.err
	}
	if bw.buf.Len() > 0 {
		if err := bw.flushBlock(); err != nil {
			return voffset.Offset{}, err
		}
	}
	return voffset.Offset{File: bw.written, Block: 0}, nil
}

func (bw *Writer) flushBlock() error {
	uncompressed := bw.buf.Bytes()
	compressed, err := deflate(uncompressed, bw.level)
	if err != nil {
		bw.err = xerrors.NewResourceError("block: compress", err)
		return bw.err
	}
	blockSize := len(compressed) + 18 + 8 // header + trailer.
	if blockSize > MaxBlockSize {
		bw.err = xerrors.NewResourceError("block: compress", fmt.Errorf("compressed block size %d exceeds %d", blockSize, MaxBlockSize))
		return bw.err
	}
	if err := writeHeader(bw.w, blockSize); err != nil {
		bw.err = xerrors.NewResourceError("block: write header", err)
		return bw.err
	}
	if _, err := bw.w.Write(compressed); err != nil {
		bw.err = xerrors.NewResourceError("block: write body", err)
		return bw.err
	}
	crc := crc32.ChecksumIEEE(uncompressed)
	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:], crc)
	binary.LittleEndian.PutUint32(trailer[4:], uint32(len(uncompressed)))
	if _, err := bw.w.Write(trailer[:]); err != nil {
		bw.err = xerrors.NewResourceError("block: write trailer", err)
		return bw.err
	}
	bw.written += int64(blockSize)
	bw.buf.Reset()
	return nil
}

// Close flushes any pending bytes and writes the canonical empty EOF
// block.
func (bw *Writer) Close() error {
	if bw.closed {
		return bw.err
	}
	bw.closed = true
	if _, err := bw.Flush(); err != nil {
		return err
	}
	if _, err := bw.w.Write(eofMarker); err != nil {
		bw.err = xerrors.NewResourceError("block: write eof marker", err)
	}
	return bw.err
}

func deflate(p []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(p); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(w io.Writer, blockSize int) error {
	var h [18]byte
	h[0], h[1], h[2], h[3] = gzipID1, gzipID2, cmDeflate, flgExtra
	h[9] = osUnknown
	binary.LittleEndian.PutUint16(h[10:], 6) // XLEN: one 6-byte BC subfield.
	h[12], h[13] = extraSubfieldTag[0], extraSubfieldTag[1]
	binary.LittleEndian.PutUint16(h[14:], 2) // SLEN.
	binary.LittleEndian.PutUint16(h[16:], uint16(blockSize-1))
	_, err := w.Write(h[:])
	return err
}
