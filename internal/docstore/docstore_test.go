package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexindex/internal/domain"
)

// both implementations must satisfy the same contract
func stores(t *testing.T) map[string]domain.DocumentStore {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]domain.DocumentStore{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestCreateAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := domain.Document{
				ID:            "case-1",
				Title:         "Smith v. Jones",
				SourceLocator: "/docs/smith-v-jones.pdf",
			}
			require.NoError(t, store.Create(ctx, doc))

			got, err := store.Get(ctx, "case-1")
			require.NoError(t, err)
			assert.Equal(t, "Smith v. Jones", got.Title)
			assert.Equal(t, "/docs/smith-v-jones.pdf", got.SourceLocator)
			assert.Equal(t, domain.StatusPending, got.Status, "empty status defaults to pending")
		})
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, domain.Document{ID: "d1", Title: "T", SourceLocator: "l"}))

			for _, status := range []domain.Status{
				domain.StatusIndexing, domain.StatusIndexed, domain.StatusError,
			} {
				require.NoError(t, store.UpdateStatus(ctx, "d1", status))
				got, err := store.Get(ctx, "d1")
				require.NoError(t, err)
				assert.Equal(t, status, got.Status)
			}

			assert.ErrorIs(t, store.UpdateStatus(ctx, "ghost", domain.StatusIndexed), ErrNotFound)
		})
	}
}

func TestGetSourceLocator(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, domain.Document{ID: "d1", Title: "T", SourceLocator: "s3://b/k.txt"}))

			locator, err := store.GetSourceLocator(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, "s3://b/k.txt", locator)

			_, err = store.GetSourceLocator(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListOrderedByID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, domain.Document{ID: "b", Title: "B", SourceLocator: "lb"}))
			require.NoError(t, store.Create(ctx, domain.Document{ID: "a", Title: "A", SourceLocator: "la"}))

			docs, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "a", docs[0].ID)
			assert.Equal(t, "b", docs[1].ID)
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, domain.Document{ID: "d1", Title: "T", SourceLocator: "l"}))
			require.NoError(t, store.Delete(ctx, "d1"))
			_, err := store.Get(ctx, "d1")
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, store.Delete(ctx, "d1"))
		})
	}
}
