// Package bai implements the default on-disk index format: magic
// "BAI\1", a per-reference bin table and linear index, and an
// optional trailing no-coordinate count.
//
// Grounded on the bam/index.go, bam/index_read.go and
// bam/index_write.go, generalized to the format-agnostic index.Reference
// structures and bin.Default scheme shared with package csi.
package bai

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/index"
	"github.com/seqarc/gsa/query"
	"github.com/seqarc/gsa/voffset"
	"github.com/seqarc/gsa/xerrors"
)

var magic = [4]byte{'B', 'A', 'I', 0x1}

// Index is an in-memory BAI index: the per-reference linear/binning
// indexes plus the file-level no-coordinate count.
type Index struct {
	Refs              []*index.Reference
	NoCoordinateCount uint64
}

// New wraps indexer output (the finalized per-reference indexes and
// no-coordinate count returned by indexer.Indexer.Finish) as an Index.
func New(refs []*index.Reference, noCoordinateCount uint64) *Index {
	return &Index{Refs: refs, NoCoordinateCount: noCoordinateCount}
}

// NumRefs returns the number of references in the index.
func (x *Index) NumRefs() int { return len(x.Refs) }

// Stats returns reference refID's mapped/unmapped counts and mapped
// span, and whether any stats were recorded for it.
func (x *Index) Stats(refID int) (index.Stats, bool) {
	if refID < 0 || refID >= len(x.Refs) || x.Refs[refID].Stats == nil {
		return index.Stats{}, false
	}
	return *x.Refs[refID].Stats, true
}

// Query returns the coalesced chunk list covering 1-based inclusive
// region [start,end] on reference refID; end == 0 means to the end of the reference, here
// represented by refLen.
func (x *Index) Query(refID, start, end, refLen int) ([]voffset.Chunk, error) {
	if refID < 0 || refID >= len(x.Refs) {
		return nil, xerrors.NewUsageError("bai: reference %d out of range [0,%d)", refID, len(x.Refs))
	}
	beg0 := start - 1
	if beg0 < 0 {
		beg0 = 0
	}
	end0 := end
	if end0 == 0 {
		end0 = refLen
	}
	return query.Linear(x.Refs[refID], bin.Default, beg0, end0), nil
}

// AllOffsets returns every chunk-begin and linear-tile virtual offset
// recorded for refID, deduplicated and sorted — a splitting aid for
// parallel scans over roughly equal byte ranges.
func (x *Index) AllOffsets(refID int) []voffset.Offset {
	if refID < 0 || refID >= len(x.Refs) {
		return nil
	}
	ref := x.Refs[refID]
	var out []voffset.Offset
	for _, be := range ref.Bins {
		for _, c := range be.Chunks {
			if !c.Begin.IsZero() {
				out = append(out, c.Begin)
			}
		}
	}
	for _, o := range ref.Linear {
		if !o.IsZero() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	uniq := out[:0]
	var prev voffset.Offset
	havePrev := false
	for _, o := range out {
		if havePrev && o == prev {
			continue
		}
		uniq = append(uniq, o)
		prev, havePrev = o, true
	}
	return uniq
}

// WriteTo serializes x in BAI format.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	if _, err := cw.Write(magic[:]); err != nil {
		return cw.n, xerrors.NewResourceError("bai: write magic", err)
	}
	if err := writeInt32(cw, int32(len(x.Refs))); err != nil {
		return cw.n, err
	}
	for _, ref := range x.Refs {
		if err := writeReference(cw, ref); err != nil {
			return cw.n, err
		}
	}
	if err := writeUint64(cw, x.NoCoordinateCount); err != nil {
		return cw.n, err
	}
	if err := bw.Flush(); err != nil {
		return cw.n, xerrors.NewResourceError("bai: flush", err)
	}
	return cw.n, nil
}

func writeReference(w io.Writer, ref *index.Reference) error {
	nums := ref.SortedBinNumbers()
	nBins := int32(len(nums))
	if ref.Stats != nil {
		nBins++
	}
	if err := writeInt32(w, nBins); err != nil {
		return err
	}
	for _, b := range nums {
		be := ref.Bins[b]
		if err := writeUint32(w, b); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(be.Chunks))); err != nil {
			return err
		}
		for _, c := range be.Chunks {
			if err := writeUint64(w, c.Begin.Packed()); err != nil {
				return err
			}
			if err := writeUint64(w, c.End.Packed()); err != nil {
				return err
			}
		}
	}
	if ref.Stats != nil {
		if err := writeUint32(w, bin.Default.MetaBin()); err != nil {
			return err
		}
		if err := writeInt32(w, 2); err != nil {
			return err
		}
		if err := writeUint64(w, ref.Stats.Span.Begin.Packed()); err != nil {
			return err
		}
		if err := writeUint64(w, ref.Stats.Span.End.Packed()); err != nil {
			return err
		}
		if err := writeUint64(w, ref.Stats.Mapped); err != nil {
			return err
		}
		if err := writeUint64(w, ref.Stats.Unmapped); err != nil {
			return err
		}
	}
	if err := writeInt32(w, int32(len(ref.Linear))); err != nil {
		return err
	}
	for _, o := range ref.Linear {
		if err := writeUint64(w, o.Packed()); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom parses a BAI index from r.
func ReadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, xerrors.NewResourceError("bai: read magic", err)
	}
	if got != magic {
		return nil, xerrors.NewFormatError("bai", fmt.Errorf("magic mismatch: got %v", got))
	}
	nRef, err := readInt32(br)
	if err != nil {
		return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read nRef"))
	}
	idx := &Index{Refs: make([]*index.Reference, nRef)}
	for i := range idx.Refs {
		ref, err := readReference(br)
		if err != nil {
			return nil, err
		}
		idx.Refs[i] = ref
	}
	n, err := readUint64(br)
	if err == nil {
		idx.NoCoordinateCount = n
	} else if err != io.EOF {
		return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read noCoordinateCount"))
	}
	return idx, nil
}

func readReference(r io.Reader) (*index.Reference, error) {
	ref := index.NewReference()
	nBins, err := readInt32(r)
	if err != nil {
		return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read nBins"))
	}
	for i := int32(0); i < nBins; i++ {
		b, err := readUint32(r)
		if err != nil {
			return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read bin number"))
		}
		nChunks, err := readInt32(r)
		if err != nil {
			return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read nChunks"))
		}
		if b == bin.Default.MetaBin() {
			if nChunks != 2 {
				return nil, xerrors.NewFormatError("bai", fmt.Errorf("metadata pseudo-bin must have exactly 2 chunks, got %d", nChunks))
			}
			spanBeg, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			spanEnd, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			mapped, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			unmapped, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			ref.Stats = &index.Stats{
				Span:     voffset.Chunk{Begin: voffset.FromPacked(spanBeg), End: voffset.FromPacked(spanEnd)},
				Mapped:   mapped,
				Unmapped: unmapped,
			}
			continue
		}
		for j := int32(0); j < nChunks; j++ {
			beg, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			end, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("bai", err)
			}
			ref.AddChunk(b, voffset.Chunk{Begin: voffset.FromPacked(beg), End: voffset.FromPacked(end)})
		}
	}
	nLinear, err := readInt32(r)
	if err != nil {
		return nil, xerrors.NewFormatError("bai", errors.Wrap(err, "read nLinear"))
	}
	ref.GrowLinear(int(nLinear))
	for i := int32(0); i < nLinear; i++ {
		o, err := readUint64(r)
		if err != nil {
			return nil, xerrors.NewFormatError("bai", err)
		}
		ref.Linear[i] = voffset.FromPacked(o)
	}
	ref.Seal()
	return ref, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func writeInt32(w io.Writer, v int32) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return xerrors.NewResourceError("bai: write", err)
	}
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return xerrors.NewResourceError("bai: write", err)
	}
	return nil
}

func writeUint64(w io.Writer, v uint64) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return xerrors.NewResourceError("bai: write", err)
	}
	return nil
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
