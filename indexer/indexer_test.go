package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqarc/gsa/bin"
	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/voffset"
)

func mustRecord(t *testing.T, dict *record.Dictionary, refName string, pos int, cigarStr string) *record.AlignmentRecord {
	t.Helper()
	ref := dict.ByName(refName)
	cigar, err := record.ParseCigar([]byte(cigarStr))
	require.NoError(t, err)
	bases := make([]byte, cigar.ReadLength())
	for i := range bases {
		bases[i] = 'A'
	}
	rec, err := record.NewRecord("r", ref, nil, pos, -1, 0, 60, cigar, bases, nil, nil)
	require.NoError(t, err)
	return rec
}

func TestIndexerBasicScan(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1", "chr2"}, []int{1 << 20, 1 << 20})
	ix := New(bin.Default, dict.Len())

	r1 := mustRecord(t, dict, "chr1", 100, "50M")
	require.NoError(t, ix.Add(r1, voffset.Offset{File: 0, Block: 0}))

	r2 := mustRecord(t, dict, "chr1", 200, "50M")
	require.NoError(t, ix.Add(r2, voffset.Offset{File: 0, Block: 10}))

	r3 := mustRecord(t, dict, "chr2", 50, "50M")
	require.NoError(t, ix.Add(r3, voffset.Offset{File: 100, Block: 0}))

	refs, noCoord, err := ix.Finish()
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, uint64(0), noCoord)

	chr1 := refs[0]
	assert.Equal(t, uint64(2), chr1.Stats.Mapped)
	assert.Equal(t, uint64(0), chr1.Stats.Unmapped)

	chr2 := refs[1]
	assert.Equal(t, uint64(1), chr2.Stats.Mapped)
}

func TestIndexerNoCoordinateRecordsAreCounted(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1"}, []int{1000})
	ix := New(bin.Default, dict.Len())

	rec, err := record.NewRecord("unplaced", nil, nil, -1, -1, 0, 0, nil, []byte("ACGT"), nil, nil)
	require.NoError(t, err)
	rec.Flags |= record.Unmapped

	require.NoError(t, ix.Add(rec, voffset.Offset{File: 5, Block: 0}))

	refs, noCoord, err := ix.Finish()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), noCoord)
	require.Len(t, refs, 1)
	assert.Nil(t, refs[0].Stats)
}

func TestIndexerRejectsOutOfOrderInput(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1"}, []int{1000})
	ix := New(bin.Default, dict.Len())

	r1 := mustRecord(t, dict, "chr1", 200, "10M")
	require.NoError(t, ix.Add(r1, voffset.Offset{File: 0, Block: 0}))

	r2 := mustRecord(t, dict, "chr1", 100, "10M")
	err := ix.Add(r2, voffset.Offset{File: 0, Block: 20})
	assert.Error(t, err)
}

func TestIndexerRejectsUnknownReference(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1"}, []int{1000})
	other := record.NewDictionary([]string{"chrX"}, []int{1000})
	ix := New(bin.Default, dict.Len())

	rec := mustRecord(t, other, "chrX", 10, "10M")
	err := ix.Add(rec, voffset.Offset{File: 0, Block: 0})
	assert.Error(t, err)
}

func TestIndexerEmitsEmptyReferencesForSkippedRefIDs(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1", "chr2", "chr3"}, []int{1000, 1000, 1000})
	ix := New(bin.Default, dict.Len())

	rec := mustRecord(t, dict, "chr3", 10, "10M")
	require.NoError(t, ix.Add(rec, voffset.Offset{File: 0, Block: 0}))

	refs, _, err := ix.Finish()
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Nil(t, refs[0].Stats)
	assert.Nil(t, refs[1].Stats)
	assert.NotNil(t, refs[2].Stats)
}

func TestIndexerFinishSealsAllRemainingReferencesOnEmptyInput(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1", "chr2"}, []int{1000, 2000})
	ix := New(bin.Default, dict.Len())

	refs, noCoord, err := ix.Finish()
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, uint64(0), noCoord)
	for _, r := range refs {
		assert.Nil(t, r.Stats)
	}
}

func TestIndexerLinearIndexIsNonDecreasingAfterFinish(t *testing.T) {
	dict := record.NewDictionary([]string{"chr1"}, []int{1 << 20})
	ix := New(bin.Default, dict.Len())

	for i, pos := range []int{0, 1 << 15, 1 << 18} {
		rec := mustRecord(t, dict, "chr1", pos, "10M")
		require.NoError(t, ix.Add(rec, voffset.Offset{File: int64(i * 100), Block: 0}))
	}
	refs, _, err := ix.Finish()
	require.NoError(t, err)

	linear := refs[0].Linear
	var last uint64
	for _, o := range linear {
		assert.GreaterOrEqual(t, o.Packed(), last)
		if o.Packed() > 0 {
			last = o.Packed()
		}
	}
}
