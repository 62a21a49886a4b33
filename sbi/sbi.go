// Package sbi implements the offset side-index: a sparse, ordered
// mapping from record index to virtual offset, letting a caller split
// a record stream into roughly equal-sized ranges for parallel
// scanning without touching the coordinate-based bai/csi indexes.
//
// biogo/hts predates this format, so there is no direct file to
// generalize; it is built fresh, in the idiom the rest of this
// module's binary formats use (fixed-width encoding/binary fields, a
// magic-prefixed header) and borrowing the bounded-chunk-read idiom
// from bgzf/index.ChunkReader for the "granularity" sampling loop.
package sbi

import (
	"bufio"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/seqarc/gsa/voffset"
	"github.com/seqarc/gsa/xerrors"
)

var magic = [4]byte{'S', 'B', 'I', 0x1}

// DefaultGranularity is the default sampling interval G: every G-th
// (recordIndex, virtualOffset) observation is retained.
const DefaultGranularity = 4096

// Entry pairs a record's 0-based index with the virtual offset of its
// start in the underlying block stream.
type Entry struct {
	RecordIndex  uint64
	VirtualOffset voffset.Offset
}

// Builder samples a stream of (recordIndex, virtualOffset) observations
// into a sparse Index, keeping every Granularity-th entry and a
// trailing entry for the end of the file.
type Builder struct {
	Granularity uint64

	recordCount uint64
	lastOffset  voffset.Offset
	haveLast    bool
	entries     []Entry
}

// NewBuilder returns a Builder sampling every granularity-th record (0
// falls back to DefaultGranularity).
func NewBuilder(granularity uint64) *Builder {
	if granularity == 0 {
		granularity = DefaultGranularity
	}
	return &Builder{Granularity: granularity}
}

// Observe records one record's index and virtual offset. Offsets must
// be non-decreasing (equal offsets are accepted); an inversion is fatal.
func (b *Builder) Observe(recordIndex uint64, vo voffset.Offset) error {
	if b.haveLast && vo.Packed() < b.lastOffset.Packed() {
		return xerrors.NewUsageError("sbi: virtual offset went backwards at record %d: %v < %v", recordIndex, vo, b.lastOffset)
	}
	b.lastOffset = vo
	b.haveLast = true
	b.recordCount = recordIndex + 1
	if recordIndex%b.Granularity == 0 {
		b.entries = append(b.entries, Entry{RecordIndex: recordIndex, VirtualOffset: vo})
	}
	return nil
}

// Finish builds the Index once the record stream is complete. eof is
// the virtual offset of the end of the file (after the stream's
// trailing block), fileLength the on-disk byte length, and md5sum the
// already-computed digest stored in the md5 field (HashContent computes
// one); uuid is an opaque 16-byte identifier the
// caller chooses (typically random, but passed in explicitly since
// this package does not generate randomness itself).
func (b *Builder) Finish(fileLength uint64, md5sum [16]byte, uuid [16]byte, eof voffset.Offset) *Index {
	entries := append([]Entry(nil), b.entries...)
	if len(entries) == 0 || entries[len(entries)-1].VirtualOffset != eof {
		entries = append(entries, Entry{RecordIndex: b.recordCount, VirtualOffset: eof})
	}
	return &Index{
		FileLength:  fileLength,
		MD5:         md5sum,
		UUID:        uuid,
		RecordCount: b.recordCount,
		Granularity: b.Granularity,
		Entries:     entries,
	}
}

// Index is a parsed or built SBI side-index.
type Index struct {
	FileLength  uint64
	MD5         [16]byte
	UUID        [16]byte
	RecordCount uint64
	Granularity uint64
	Entries     []Entry
}

// Find returns the entry with the largest RecordIndex <= target, and
// true, or the zero Entry and false if target precedes every sampled
// entry.
func (x *Index) Find(target uint64) (Entry, bool) {
	lo, hi := 0, len(x.Entries)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if x.Entries[mid].RecordIndex <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return x.Entries[best], true
}

// WriteTo serializes x in SBI format.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(p []byte) error {
		k, err := bw.Write(p)
		n += int64(k)
		if err != nil {
			return xerrors.NewResourceError("sbi: write", err)
		}
		return nil
	}
	if err := write(magic[:]); err != nil {
		return n, err
	}
	var u64 [8]byte
	putU64 := func(v uint64) error {
		binary.LittleEndian.PutUint64(u64[:], v)
		return write(u64[:])
	}
	if err := putU64(x.FileLength); err != nil {
		return n, err
	}
	if err := write(x.MD5[:]); err != nil {
		return n, err
	}
	if err := write(x.UUID[:]); err != nil {
		return n, err
	}
	if err := putU64(x.RecordCount); err != nil {
		return n, err
	}
	if err := putU64(x.Granularity); err != nil {
		return n, err
	}
	if err := putU64(uint64(len(x.Entries))); err != nil {
		return n, err
	}
	for _, e := range x.Entries {
		if err := putU64(e.VirtualOffset.Packed()); err != nil {
			return n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return n, xerrors.NewResourceError("sbi: flush", err)
	}
	return n, nil
}

// ReadFrom parses an SBI index from r. Entries' RecordIndex
// fields are reconstructed from position (0, Granularity, 2*Granularity,
// ...) since the on-disk layout stores only virtual offsets; the final
// entry (the end-of-file marker) is assigned RecordCount.
func ReadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, xerrors.NewResourceError("sbi: read magic", err)
	}
	if got != magic {
		return nil, xerrors.NewFormatError("sbi", fmt.Errorf("magic mismatch: got %v", got))
	}
	readU64 := func(context string) (uint64, error) {
		var buf [8]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return 0, xerrors.NewFormatError("sbi", fmt.Errorf("%s: %w", context, err))
		}
		return binary.LittleEndian.Uint64(buf[:]), nil
	}
	x := &Index{}
	fileLength, err := readU64("fileLength")
	if err != nil {
		return nil, err
	}
	x.FileLength = fileLength
	if _, err := io.ReadFull(br, x.MD5[:]); err != nil {
		return nil, xerrors.NewFormatError("sbi", fmt.Errorf("md5: %w", err))
	}
	if _, err := io.ReadFull(br, x.UUID[:]); err != nil {
		return nil, xerrors.NewFormatError("sbi", fmt.Errorf("uuid: %w", err))
	}
	recordCount, err := readU64("recordCount")
	if err != nil {
		return nil, err
	}
	x.RecordCount = recordCount
	granularity, err := readU64("granularity")
	if err != nil {
		return nil, err
	}
	x.Granularity = granularity
	offsetCount, err := readU64("offsetCount")
	if err != nil {
		return nil, err
	}
	x.Entries = make([]Entry, offsetCount)
	var prev uint64
	for i := range x.Entries {
		v, err := readU64("offset")
		if err != nil {
			return nil, err
		}
		if i > 0 && v < prev {
			return nil, xerrors.NewFormatError("sbi", fmt.Errorf("entry %d virtual offset went backwards", i))
		}
		prev = v
		idx := uint64(i) * granularity
		if i == len(x.Entries)-1 {
			idx = recordCount
		}
		x.Entries[i] = Entry{RecordIndex: idx, VirtualOffset: voffset.FromPacked(v)}
	}
	return x, nil
}

// HashContent is a convenience helper computing the md5 field callers
// typically pass to Builder.Finish, hashing the underlying stream's
// bytes.
func HashContent(r io.Reader) ([16]byte, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return [16]byte{}, xerrors.NewResourceError("sbi: hash content", err)
	}
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
