package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexindex/internal/domain"
)

func point(docID string, idx int, vector []float64) domain.IndexPoint {
	return domain.IndexPoint{
		ID:         domain.PointID(docID, idx),
		Vector:     vector,
		Text:       "chunk " + domain.PointID(docID, idx),
		DocumentID: docID,
		ChunkIndex: idx,
		Title:      "Title " + docID,
	}
}

func TestUpsertOverwritesSameID(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))

	require.NoError(t, ix.Upsert(ctx, []domain.IndexPoint{point("docA", 0, []float64{1, 0})}))
	require.NoError(t, ix.Upsert(ctx, []domain.IndexPoint{point("docA", 0, []float64{0, 1})}))

	assert.Equal(t, 1, ix.Count("docA"))
	res, err := ix.Search(ctx, []float64{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestSearchRespectsKAndOrder(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	require.NoError(t, ix.Upsert(ctx, []domain.IndexPoint{
		point("docA", 0, []float64{1, 0}),
		point("docA", 1, []float64{0.9, 0.1}),
		point("docA", 2, []float64{0, 1}),
	}))

	res, err := ix.Search(ctx, []float64{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	assert.Equal(t, 0, res[0].ChunkIndex)
}

func TestSearchFilterRestrictsToDocument(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	require.NoError(t, ix.Upsert(ctx, []domain.IndexPoint{
		point("docA", 0, []float64{1, 0}),
		point("docA", 1, []float64{0, 1}),
		point("docB", 0, []float64{1, 0}),
	}))

	res, err := ix.Search(ctx, []float64{1, 0}, 2, &domain.SearchFilter{DocumentID: "docA"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.Equal(t, "docA", r.DocumentID)
	}
}

func TestDeleteByDocumentIdempotent(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	require.NoError(t, ix.Upsert(ctx, []domain.IndexPoint{
		point("docA", 0, []float64{1, 0}),
		point("docB", 0, []float64{0, 1}),
	}))

	require.NoError(t, ix.DeleteByDocument(ctx, "docA"))
	assert.Equal(t, 0, ix.Count("docA"))
	assert.Equal(t, 1, ix.Count("docB"))

	// deleting again (and deleting unknown documents) succeeds
	require.NoError(t, ix.DeleteByDocument(ctx, "docA"))
	require.NoError(t, ix.DeleteByDocument(ctx, "never-indexed"))
}

func TestUpsertDimensionMismatch(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 3))

	err := ix.Upsert(ctx, []domain.IndexPoint{point("docA", 0, []float64{1, 0})})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEnsureCollectionIsIdempotent(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	require.NoError(t, ix.EnsureCollection(ctx, 2))

	err := ix.EnsureCollection(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrVectorBackend)
}

func TestUpsertBeforeEnsureFails(t *testing.T) {
	ix := NewIndex()
	err := ix.Upsert(context.Background(), []domain.IndexPoint{point("docA", 0, []float64{1})})
	assert.ErrorIs(t, err, domain.ErrVectorBackend)
}
