package static

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	e := New(128)
	a, err := e.Embed(context.Background(), "force majeure clause")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "force majeure clause")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedDimension(t *testing.T) {
	e := New(64)
	assert.Equal(t, 64, e.Dimension())
	v, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, v, 64)
}

func TestEmbedNormalized(t *testing.T) {
	e := New(128)
	v, err := e.Embed(context.Background(), "the parties agree as follows")
	require.NoError(t, err)
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e := New(32)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbedDistinctTextsDiffer(t *testing.T) {
	e := New(256)
	a, _ := e.Embed(context.Background(), "indemnification obligations")
	b, _ := e.Embed(context.Background(), "termination for convenience")
	assert.NotEqual(t, a, b)
}

func TestEmbedBatchMatchesSingle(t *testing.T) {
	e := New(128)
	texts := []string{"one", "two", "three"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, vecs[i])
	}
}

func TestSimilarTextsScoreHigher(t *testing.T) {
	e := New(256)
	ctx := context.Background()
	query, _ := e.Embed(ctx, "breach of contract damages")
	near, _ := e.Embed(ctx, "damages for breach of contract")
	far, _ := e.Embed(ctx, "maritime salvage operations")
	assert.Greater(t, dot(query, near), dot(query, far))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	if math.IsNaN(sum) {
		return 0
	}
	return sum
}
