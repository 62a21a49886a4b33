// Package csi implements the variable-depth on-disk index format:
// magic "CSI\1", a minShift/depth/auxiliary header, and per-reference
// bins that carry an explicit lOffset (rather than relying on a
// separate linear index).
//
// Grounded on the csi/csi.go, csi/csi_read.go and
// csi/csi_write.go, generalized to the format-agnostic index.Reference
// and bin.Scheme shared with package bai. The on-disk depth excludes
// level 0 (bin 0), which is exactly how bin.Scheme.Depth counts levels,
// so WriteTo writes Scheme.Depth unchanged and ReadFrom stores the
// file's depth unchanged as Scheme.Depth.
package csi

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

var magic = [4]byte{'C', 'S', 'I', 0x1}

// DefaultMinShift and DefaultDepth match the csi.New
// defaults (tabix-style 14/5, coinciding with the fixed BAI scheme).
const (
	DefaultMinShift = 14
	DefaultDepth    = 5
)

// Index is an in-memory CSI index.
type Index struct {
	Scheme    bin.Scheme
	Aux       []byte
	Refs      []*index.Reference
	NoCoordinateCount uint64
	haveNoCoordinate  bool
}

// New wraps indexer output for a given variable-depth scheme as an
// Index. aux carries format-specific auxiliary data (e.g. a tabix
// configuration blob); pass nil when there is none.
func New(scheme bin.Scheme, aux []byte, refs []*index.Reference, noCoordinateCount uint64) *Index {
	return &Index{Scheme: scheme, Aux: aux, Refs: refs, NoCoordinateCount: noCoordinateCount, haveNoCoordinate: true}
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
// region [start,end] on reference refID, using the CSI lOffset
// sibling-walk to find minimumOffset.
func (x *Index) Query(refID, start, end, refLen int) ([]voffset.Chunk, error) {
	if refID < 0 || refID >= len(x.Refs) {
		return nil, xerrors.NewUsageError("csi: reference %d out of range [0,%d)", refID, len(x.Refs))
	}
	beg0 := start - 1
	if beg0 < 0 {
		beg0 = 0
	}
	end0 := end
	if end0 == 0 {
		end0 = refLen
	}
	return query.CSI(x.Refs[refID], x.Scheme, beg0, end0), nil
}

// QueryBin returns the chunk list for an explicit bin number plus its
// present ancestors.
func (x *Index) QueryBin(refID int, b uint32) ([]voffset.Chunk, error) {
	if refID < 0 || refID >= len(x.Refs) {
		return nil, xerrors.NewUsageError("csi: reference %d out of range [0,%d)", refID, len(x.Refs))
	}
	return query.BinAndAncestors(x.Refs[refID], x.Scheme, b), nil
}

// AllOffsets returns every chunk-begin virtual offset and every bin's
// lOffset recorded for refID, deduplicated and sorted.
func (x *Index) AllOffsets(refID int) []voffset.Offset {
	if refID < 0 || refID >= len(x.Refs) {
		return nil
	}
	ref := x.Refs[refID]
	var out []voffset.Offset
	for _, be := range ref.Bins {
		if !be.Left.IsZero() {
			out = append(out, be.Left)
		}
		for _, c := range be.Chunks {
			if !c.Begin.IsZero() {
				out = append(out, c.Begin)
			}
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

// WriteTo serializes x in CSI format.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	if _, err := cw.Write(magic[:]); err != nil {
		return cw.n, xerrors.NewResourceError("csi: write magic", err)
	}
	if err := writeInt32(cw, int32(x.Scheme.MinShift)); err != nil {
		return cw.n, err
	}
	if err := writeInt32(cw, int32(x.Scheme.Depth)); err != nil { // depth excludes level 0.
		return cw.n, err
	}
	if err := writeInt32(cw, int32(len(x.Aux))); err != nil {
		return cw.n, err
	}
	if len(x.Aux) > 0 {
		if _, err := cw.Write(x.Aux); err != nil {
			return cw.n, xerrors.NewResourceError("csi: write aux", err)
		}
	}
	if err := writeInt32(cw, int32(len(x.Refs))); err != nil {
		return cw.n, err
	}
	for _, ref := range x.Refs {
		if err := writeReference(cw, x.Scheme, ref); err != nil {
			return cw.n, err
		}
	}
	if x.haveNoCoordinate {
		if err := writeUint64(cw, x.NoCoordinateCount); err != nil {
			return cw.n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, xerrors.NewResourceError("csi: flush", err)
	}
	return cw.n, nil
}

func writeReference(w io.Writer, scheme bin.Scheme, ref *index.Reference) error {
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
		if err := writeBinHeader(w, b, be.Left, len(be.Chunks)); err != nil {
			return err
		}
		for _, c := range be.Chunks {
			if err := writeChunk(w, c); err != nil {
				return err
			}
		}
	}
	if ref.Stats != nil {
		if err := writeBinHeader(w, scheme.MetaBin(), voffset.Offset{}, 2); err != nil {
			return err
		}
		if err := writeChunk(w, ref.Stats.Span); err != nil {
			return err
		}
		if err := writeChunk(w, voffset.Chunk{Begin: voffset.FromPacked(ref.Stats.Mapped), End: voffset.FromPacked(ref.Stats.Unmapped)}); err != nil {
			return err
		}
	}
	return nil
}

func writeBinHeader(w io.Writer, b uint32, left voffset.Offset, nChunks int) error {
	if err := writeUint32(w, b); err != nil {
		return err
	}
	if err := writeUint64(w, left.Packed()); err != nil {
		return err
	}
	return writeInt32(w, int32(nChunks))
}

func writeChunk(w io.Writer, c voffset.Chunk) error {
	if err := writeUint64(w, c.Begin.Packed()); err != nil {
		return err
	}
	return writeUint64(w, c.End.Packed())
}

// ReadFrom parses a CSI index from r.
func ReadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, xerrors.NewResourceError("csi: read magic", err)
	}
	if got != magic {
		return nil, xerrors.NewFormatError("csi", fmt.Errorf("magic mismatch: got %v", got))
	}
	minShift, err := readInt32(br)
	if err != nil {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read minShift"))
	}
	fileDepth, err := readInt32(br)
	if err != nil {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read depth"))
	}
	auxLen, err := readInt32(br)
	if err != nil {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read auxLen"))
	}
	var aux []byte
	if auxLen > 0 {
		aux = make([]byte, auxLen)
		if _, err := io.ReadFull(br, aux); err != nil {
			return nil, xerrors.NewResourceError("csi: read aux", err)
		}
	}
	scheme := bin.Scheme{MinShift: uint32(minShift), Depth: uint32(fileDepth)}
	nRef, err := readInt32(br)
	if err != nil {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read nRef"))
	}
	idx := &Index{Scheme: scheme, Aux: aux, Refs: make([]*index.Reference, nRef)}
	for i := range idx.Refs {
		ref, err := readReference(br, scheme)
		if err != nil {
			return nil, err
		}
		idx.Refs[i] = ref
	}
	n, err := readUint64(br)
	if err == nil {
		idx.NoCoordinateCount = n
		idx.haveNoCoordinate = true
	} else if err != io.EOF {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read noCoordinateCount"))
	}
	return idx, nil
}

func readReference(r io.Reader, scheme bin.Scheme) (*index.Reference, error) {
	ref := index.NewReference()
	nBins, err := readInt32(r)
	if err != nil {
		return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read nBins"))
	}
	for i := int32(0); i < nBins; i++ {
		b, err := readUint32(r)
		if err != nil {
			return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read bin number"))
		}
		lOffset, err := readUint64(r)
		if err != nil {
			return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read lOffset"))
		}
		nChunks, err := readInt32(r)
		if err != nil {
			return nil, xerrors.NewFormatError("csi", errors.Wrap(err, "read nChunks"))
		}
		if b == scheme.MetaBin() {
			if nChunks != 2 {
				return nil, xerrors.NewFormatError("csi", fmt.Errorf("metadata pseudo-bin must have exactly 2 chunks, got %d", nChunks))
			}
			spanBeg, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("csi", err)
			}
			spanEnd, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("csi", err)
			}
			mapped, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("csi", err)
			}
			unmapped, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("csi", err)
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
				return nil, xerrors.NewFormatError("csi", err)
			}
			end, err := readUint64(r)
			if err != nil {
				return nil, xerrors.NewFormatError("csi", err)
			}
			ref.AddChunk(b, voffset.Chunk{Begin: voffset.FromPacked(beg), End: voffset.FromPacked(end)})
		}
		if be, ok := ref.Bins[b]; ok {
			be.Left = voffset.FromPacked(lOffset)
		}
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
		return xerrors.NewResourceError("csi: write", err)
	}
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return xerrors.NewResourceError("csi: write", err)
	}
	return nil
}

func writeUint64(w io.Writer, v uint64) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return xerrors.NewResourceError("csi: write", err)
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
