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

// Reader reads a block-compressed stream written by Writer, tracking
// the virtual offset of every byte it returns so callers can record
// voffset.Chunk spans as they consume records.
//
// Blocked, when set, stops Read at the end of the current block
// instead of loading the next one, matching the bounded-read
// behavior ChunkReader needs to honor an index chunk's exact end
// offset (grounded on the bgzf/index.ChunkReader).
type Reader struct {
	r      io.Reader
	seeker io.ReadSeeker

	fileOffset int64
	block      []byte
	pos        int
	onDisk     int64 // on-disk byte size of the block currently loaded.

	chunkBegin voffset.Offset

	Blocked bool

	err error
}

// NewReader wraps r, reading and validating the first block.
func NewReader(r io.Reader) (*Reader, error) {
	br := &Reader{r: r}
	if rs, ok := r.(io.ReadSeeker); ok {
		br.seeker = rs
	}
	if err := br.loadBlock(); err != nil {
		return nil, err
	}
	return br, nil
}

func (br *Reader) loadBlock() error {
	var h [12]byte
	_, err := io.ReadFull(br.r, h[:])
	if err == io.EOF {
		br.block = nil
		br.pos = 0
		br.err = io.EOF
		return nil
	}
	if err != nil {
		return xerrors.NewResourceError("block: read header", err)
	}
	if h[0] != gzipID1 || h[1] != gzipID2 || h[2] != cmDeflate {
		return xerrors.NewFormatError("block", fmt.Errorf("bad gzip member header"))
	}
	xlen := int(binary.LittleEndian.Uint16(h[10:]))
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(br.r, extra); err != nil {
		return xerrors.NewResourceError("block: read extra", err)
	}
	bsizeField, ok := findBlockSize(extra)
	if !ok {
		return xerrors.NewFormatError("block", fmt.Errorf("missing BC extra subfield"))
	}
	// BSIZE (bsizeField) is the total on-disk block size, header
	// through trailer inclusive, minus 1.
	headerLen := 12 + xlen
	totalOnDisk := bsizeField + 1
	bodyLen := totalOnDisk - headerLen - 8
	if bodyLen < 0 {
		return xerrors.NewFormatError("block", fmt.Errorf("invalid compressed block size %d", bsizeField))
	}
	compressed := make([]byte, bodyLen)
	if _, err := io.ReadFull(br.r, compressed); err != nil {
		return xerrors.NewResourceError("block: read body", err)
	}
	var trailer [8]byte
	if _, err := io.ReadFull(br.r, trailer[:]); err != nil {
		return xerrors.NewResourceError("block: read trailer", err)
	}
	wantCRC := binary.LittleEndian.Uint32(trailer[0:])
	wantSize := binary.LittleEndian.Uint32(trailer[4:])

	fr := flate.NewReader(bytes.NewReader(compressed))
	decompressed, err := io.ReadAll(fr)
	if err != nil {
		return xerrors.NewFormatError("block", fmt.Errorf("inflate: %w", err))
	}
	if uint32(len(decompressed)) != wantSize {
		return xerrors.NewFormatError("block", fmt.Errorf("decompressed size %d does not match ISIZE %d", len(decompressed), wantSize))
	}
	if crc32.ChecksumIEEE(decompressed) != wantCRC {
		return xerrors.NewFormatError("block", fmt.Errorf("CRC mismatch"))
	}

	br.block = decompressed
	br.pos = 0
	br.onDisk = int64(totalOnDisk)
	return nil
}

// findBlockSize returns the raw BSIZE field value (total on-disk
// block size minus 1) carried by the BC extra subfield.
func findBlockSize(extra []byte) (int, bool) {
	for i := 0; i+4 <= len(extra); {
		si1, si2 := extra[i], extra[i+1]
		slen := int(binary.LittleEndian.Uint16(extra[i+2:]))
		if si1 == extraSubfieldTag[0] && si2 == extraSubfieldTag[1] && slen == 2 && i+6 <= len(extra) {
			return int(binary.LittleEndian.Uint16(extra[i+4:])), true
		}
		i += 4 + slen
	}
	return 0, false
}

// Read satisfies io.Reader, advancing through blocks as needed unless
// Blocked is set.
func (br *Reader) Read(p []byte) (int, error) {
	if br.err != nil && br.err != io.EOF {
		return 0, br.err
	}
	br.chunkBegin = br.Offset()
	total := 0
	for total < len(p) {
		if br.block == nil {
			if br.err == io.EOF {
				if total > 0 {
					return total, nil
				}
				return 0, io.EOF
			}
			return total, br.err
		}
		n := copy(p[total:], br.block[br.pos:])
		br.pos += n
		total += n
		if br.pos < len(br.block) {
			break
		}
		if total >= len(p) || br.Blocked {
			break
		}
		br.fileOffset += br.onDisk
		if err := br.loadBlock(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Offset returns the virtual offset of the next byte Read will
// return.
func (br *Reader) Offset() voffset.Offset {
	return voffset.Offset{File: br.fileOffset, Block: uint16(br.pos)}
}

// LastChunk returns the span [offset-before-last-Read,
// offset-after-last-Read), mirroring the bgzf.Reader
// convenience method used by ChunkReader to detect end-of-chunk.
func (br *Reader) LastChunk() voffset.Chunk {
	return voffset.Chunk{Begin: br.chunkBegin, End: br.Offset()}
}

// BlockLen returns the decompressed length of the block currently
// loaded.
func (br *Reader) BlockLen() int { return len(br.block) }

// Seek moves the read cursor to a virtual offset, requiring the
// wrapped reader to be an io.ReadSeeker.
func (br *Reader) Seek(off voffset.Offset) error {
	if br.seeker == nil {
		return xerrors.NewUsageError("block: Seek requires an io.ReadSeeker")
	}
	if _, err := br.seeker.Seek(off.File, io.SeekStart); err != nil {
		return xerrors.NewResourceError("block: seek", err)
	}
	br.fileOffset = off.File
	br.err = nil
	if err := br.loadBlock(); err != nil {
		return err
	}
	if int(off.Block) > len(br.block) {
		return xerrors.NewFormatError("block", fmt.Errorf("block offset %d beyond block length %d", off.Block, len(br.block)))
	}
	br.pos = int(off.Block)
	return nil
}

// Close closes the underlying reader if it implements io.Closer.
func (br *Reader) Close() error {
	if c, ok := br.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
