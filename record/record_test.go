package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordValidation(t *testing.T) {
	dict := NewDictionary([]string{"chr1"}, []int{1000})
	ref := dict.Ref(0)

	cigar, err := ParseCigar([]byte("4M"))
	require.NoError(t, err)

	rec, err := NewRecord("read1", ref, nil, 100, -1, 0, 60, cigar, []byte("ACGT"), []byte{30, 30, 30, 30}, nil)
	require.NoError(t, err)
	assert.True(t, rec.IsValid())
	assert.True(t, rec.IsPlaced())
	assert.Equal(t, 104, rec.End())

	_, err = NewRecord("", ref, nil, 100, -1, 0, 60, cigar, []byte("ACGT"), nil, nil)
	assert.Error(t, err, "empty name must be rejected")

	_, err = NewRecord("read2", nil, nil, 100, -1, 0, 60, cigar, []byte("ACGT"), nil, nil)
	assert.Error(t, err, "a position without a reference must be rejected")

	_, err = NewRecord("read3", ref, nil, 100, -1, 0, 60, cigar, []byte("ACGT"), []byte{1, 2}, nil)
	assert.Error(t, err, "quality/base length mismatch must be rejected")
}

func TestAlignmentRecordFlagsMapped(t *testing.T) {
	dict := NewDictionary([]string{"chr1"}, []int{1000})
	ref := dict.Ref(0)
	cigar, _ := ParseCigar([]byte("4M"))
	rec, err := NewRecord("r", ref, nil, 0, -1, 0, 0, cigar, []byte("ACGT"), nil, nil)
	require.NoError(t, err)
	assert.True(t, rec.IsMapped())

	rec.Flags |= Unmapped
	assert.False(t, rec.IsMapped())
	assert.True(t, rec.IsPlaced(), "an unmapped mate can still carry a placement")
}

func TestDictionaryLookup(t *testing.T) {
	dict := NewDictionary([]string{"chr1", "chr2"}, []int{100, 200})
	assert.Equal(t, 2, dict.Len())
	assert.Equal(t, "chr2", dict.Ref(1).Name())
	assert.Equal(t, 1, dict.ByName("chr2").ID())
	assert.Nil(t, dict.Ref(5))
	assert.Equal(t, -1, dict.Ref(5).ID())
	assert.Equal(t, "*", dict.Ref(5).Name())
}
