package provider

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireclub/semsearch/domain/search"
)

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"Phone AMOLED screen"})
	require.NoError(t, err)
	b, err := e.Embed(ctx, []string{"Phone AMOLED screen"})
	require.NoError(t, err)

	assert.Equal(t, a[0], b[0])
}

func TestStaticEmbedder_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder()

	vecs, err := e.Embed(context.Background(), []string{"Laptop amoled panel", "x"})
	require.NoError(t, err)

	for _, vec := range vecs {
		assert.Len(t, vec, search.Dimension)
		assert.InDelta(t, 1.0, norm(vec), 1e-5)
	}
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()

	vecs, err := e.Embed(context.Background(), []string{"   "})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, norm(vecs[0]), 1e-9)
}

func TestStaticEmbedder_SharedTokensScoreHigher(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{
		"AMOLED",
		"Phone AMOLED screen color negro",
		"wooden chair with four legs",
	})
	require.NoError(t, err)

	related := dot(vecs[0], vecs[1])
	unrelated := dot(vecs[0], vecs[2])

	assert.Greater(t, related, unrelated)
	assert.Greater(t, related, 0.3, "token overlap should clear the default semantic threshold")
}

func TestStaticEmbedder_BatchOrder(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	batch, err := e.Embed(ctx, []string{"uno", "dos"})
	require.NoError(t, err)
	uno, err := e.Embed(ctx, []string{"uno"})
	require.NoError(t, err)
	dos, err := e.Embed(ctx, []string{"dos"})
	require.NoError(t, err)

	assert.Equal(t, uno[0], batch[0])
	assert.Equal(t, dos[0], batch[1])
}
