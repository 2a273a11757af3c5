package vector

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_AddAndCount(t *testing.T) {
	x := New(3)
	assert.Equal(t, 0, x.Count())

	require.NoError(t, x.Add([]float32{1, 0, 0}, []float32{0, 1, 0}))
	assert.Equal(t, 2, x.Count())
	assert.Equal(t, 3, x.Dim())
}

func TestIndex_Add_DimensionMismatch(t *testing.T) {
	x := New(3)
	err := x.Add([]float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, x.Count(), "failed add must not mutate the index")
}

func TestIndex_Search_ScoresEveryVector(t *testing.T) {
	x := New(2)
	require.NoError(t, x.Add(
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{0.6, 0.8},
	))

	matches, err := x.Search([]float32{1, 0})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, 0, matches[0].Slot)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-6)
	assert.InDelta(t, 0.6, matches[2].Score, 1e-6)
}

func TestIndex_Search_Empty(t *testing.T) {
	x := New(2)
	matches, err := x.Search([]float32{1, 0})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_Search_QueryDimensionMismatch(t *testing.T) {
	x := New(2)
	_, err := x.Search([]float32{1, 0, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndex_Clone_Independent(t *testing.T) {
	x := New(2)
	require.NoError(t, x.Add([]float32{1, 2}))

	clone := x.Clone()
	require.NoError(t, x.Add([]float32{3, 4}))

	assert.Equal(t, 2, x.Count())
	assert.Equal(t, 1, clone.Count())
	assert.Equal(t, []float32{1, 2}, clone.At(0))
}

func TestCodec_RoundTrip(t *testing.T) {
	x := New(4)
	require.NoError(t, x.Add(
		[]float32{0.1, -0.2, 0.3, -0.4},
		[]float32{1, 0, 0, 0},
	))

	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, x.Dim(), got.Dim())
	assert.Equal(t, x.Count(), got.Count())
	assert.Equal(t, x.At(0), got.At(0))
	assert.Equal(t, x.At(1), got.At(1))
}

func TestCodec_RoundTrip_Empty(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(768).WriteTo(&buf)
	require.NoError(t, err)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 768, got.Dim())
	assert.Equal(t, 0, got.Count())
}

func TestCodec_Read_BadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not an index file at all....")))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCodec_Read_Truncated(t *testing.T) {
	x := New(4)
	require.NoError(t, x.Add([]float32{1, 2, 3, 4}))

	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.Bytes()
	_, err = Read(bytes.NewReader(raw[:len(raw)-6]))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCodec_Read_FlippedByte(t *testing.T) {
	x := New(4)
	require.NoError(t, x.Add([]float32{1, 2, 3, 4}))

	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.Bytes()
	raw[20] ^= 0xff
	_, err = Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrCorrupt)
}
