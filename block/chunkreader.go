package block

import (
	"io"

	"github.com/seqarc/gsa/voffset"
)

// ChunkReader reads only the byte ranges named by a sorted, coalesced
// list of chunks out of a Reader, skipping everything else via Seek.
// This is how a query turns a chunk list into an actual record
// stream without inflating the blocks in between.
type ChunkReader struct {
	r          *Reader
	wasBlocked bool
	chunks     []voffset.Chunk
}

// NewChunkReader puts r into Blocked mode and returns a ChunkReader
// limited to chunks, seeking to the first chunk's start.
func NewChunkReader(r *Reader, chunks []voffset.Chunk) (*ChunkReader, error) {
	wasBlocked := r.Blocked
	r.Blocked = true
	if len(chunks) != 0 {
		if err := r.Seek(chunks[0].Begin); err != nil {
			return nil, err
		}
	}
	return &ChunkReader{r: r, wasBlocked: wasBlocked, chunks: chunks}, nil
}

// Read satisfies io.Reader, returning io.EOF once every chunk has
// been consumed.
func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		return 0, io.EOF
	}
	want := cr.chunks[0].End
	cur := cr.r.Offset()
	if !cur.Less(want) {
		cr.chunks = cr.chunks[1:]
		return cr.advance(p)
	}

	limit := len(p)
	if cur.File == want.File {
		if available := int(want.Block) - int(cur.Block); available < limit {
			limit = available
		}
	}
	n, err := cr.r.Read(p[:limit])
	if err != nil && err != io.EOF {
		return n, err
	}
	after := cr.r.Offset()
	if !after.Less(want) {
		cr.chunks = cr.chunks[1:]
		if len(cr.chunks) == 0 {
			return n, io.EOF
		}
		if serr := cr.r.Seek(cr.chunks[0].Begin); serr != nil {
			return n, serr
		}
		return n, nil
	}
	if err == io.EOF && n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (cr *ChunkReader) advance(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		return 0, io.EOF
	}
	if err := cr.r.Seek(cr.chunks[0].Begin); err != nil {
		return 0, err
	}
	return cr.Read(p)
}

// Close restores r's original Blocked mode. The wrapped Reader is not
// closed.
func (cr *ChunkReader) Close() error {
	cr.r.Blocked = cr.wasBlocked
	return nil
}
