package sbi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqarc/gsa/voffset"
)

func TestBuilderSamplesEveryGranularthRecord(t *testing.T) {
	b := NewBuilder(4)
	for i := uint64(0); i < 17; i++ {
		require.NoError(t, b.Observe(i, voffset.Offset{File: int64(i), Block: 0}))
	}
	idx := b.Finish(1000, [16]byte{1}, [16]byte{2}, voffset.Offset{File: 17, Block: 0})

	// Samples at 0, 4, 8, 12, 16, plus a trailing EOF entry.
	var got []uint64
	for _, e := range idx.Entries {
		got = append(got, e.RecordIndex)
	}
	assert.Equal(t, []uint64{0, 4, 8, 12, 16, 17}, got)
	assert.Equal(t, uint64(17), idx.RecordCount)
}

func TestBuilderKeepsTrailingEntryWithDistinctEOFOffset(t *testing.T) {
	b := NewBuilder(4)
	for i := uint64(0); i < 9; i++ {
		require.NoError(t, b.Observe(i, voffset.Offset{File: int64(i), Block: 0}))
	}
	eof := voffset.Offset{File: 8, Block: 1}
	idx := b.Finish(1000, [16]byte{}, [16]byte{}, eof)

	last := idx.Entries[len(idx.Entries)-1]
	assert.Equal(t, eof, last.VirtualOffset)
	// Record 8 already sampled (8 % 4 == 0) at the same offset as eof's
	// block start; only the virtual offset governs dedup, and here eof
	// differs (Block 1 vs 0) so both entries are kept, distinctly.
	var recIdx []uint64
	for _, e := range idx.Entries {
		recIdx = append(recIdx, e.RecordIndex)
	}
	assert.Equal(t, []uint64{0, 4, 8, 9}, recIdx)
}

func TestBuilderRejectsBackwardsOffset(t *testing.T) {
	b := NewBuilder(4)
	require.NoError(t, b.Observe(0, voffset.Offset{File: 10, Block: 0}))
	err := b.Observe(1, voffset.Offset{File: 5, Block: 0})
	assert.Error(t, err)
}

func TestIndexFind(t *testing.T) {
	idx := &Index{
		Granularity: 4,
		RecordCount: 17,
		Entries: []Entry{
			{RecordIndex: 0, VirtualOffset: voffset.Offset{File: 0}},
			{RecordIndex: 4, VirtualOffset: voffset.Offset{File: 4}},
			{RecordIndex: 8, VirtualOffset: voffset.Offset{File: 8}},
			{RecordIndex: 17, VirtualOffset: voffset.Offset{File: 17}},
		},
	}

	e, ok := idx.Find(6)
	require.True(t, ok)
	assert.Equal(t, uint64(4), e.RecordIndex)

	e, ok = idx.Find(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), e.RecordIndex)

	e, ok = idx.Find(100)
	require.True(t, ok)
	assert.Equal(t, uint64(17), e.RecordIndex)
}

func TestFindBeforeFirstEntry(t *testing.T) {
	idx := &Index{Entries: []Entry{{RecordIndex: 5}}}
	_, ok := idx.Find(1)
	assert.False(t, ok)
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := NewBuilder(4)
	for i := uint64(0); i < 10; i++ {
		require.NoError(t, b.Observe(i, voffset.Offset{File: int64(i) * 100, Block: uint16(i)}))
	}
	md5sum, err := HashContent(bytes.NewReader([]byte("some file content")))
	require.NoError(t, err)
	want := b.Finish(12345, md5sum, [16]byte{9, 9, 9}, voffset.Offset{File: 1000, Block: 0})

	var buf bytes.Buffer
	_, err = want.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadFrom(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.FileLength, got.FileLength)
	assert.Equal(t, want.MD5, got.MD5)
	assert.Equal(t, want.UUID, got.UUID)
	assert.Equal(t, want.RecordCount, got.RecordCount)
	assert.Equal(t, want.Granularity, got.Granularity)
	require.Equal(t, len(want.Entries), len(got.Entries))
	for i := range want.Entries {
		assert.Equal(t, want.Entries[i].VirtualOffset, got.Entries[i].VirtualOffset)
		assert.Equal(t, want.Entries[i].RecordIndex, got.Entries[i].RecordIndex)
	}
}

func TestReadFromRejectsBadMagic(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte("not an sbi file at all")))
	assert.Error(t, err)
}
