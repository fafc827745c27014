// Package memory is an in-memory vector index using brute-force
// cosine similarity. It backs tests and single-process deployments
// where running a vector database is not worth it.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"lexindex/internal/domain"
)

// Index stores points keyed by their deterministic point id, so upsert
// has overwrite semantics for free.
type Index struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.IndexPoint
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{points: make(map[string]domain.IndexPoint)}
}

// EnsureCollection fixes the collection dimension on first call and is
// a no-op afterwards, matching the by-name-only semantics of the
// remote adapter.
func (ix *Index) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorBackend, dimension)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension == 0 {
		ix.dimension = dimension
	}
	return nil
}

// Upsert writes points, overwriting any existing point with the same id.
func (ix *Index) Upsert(_ context.Context, points []domain.IndexPoint) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension == 0 {
		return fmt.Errorf("%w: collection not initialized", domain.ErrVectorBackend)
	}
	for _, p := range points {
		if len(p.Vector) != ix.dimension {
			return fmt.Errorf("%w: vector has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, len(p.Vector), ix.dimension)
		}
	}
	for _, p := range points {
		ix.points[p.ID] = p
	}
	return nil
}

// Search scans all points, optionally restricted to one document, and
// returns at most k results by descending cosine similarity.
func (ix *Index) Search(_ context.Context, vector []float64, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	results := make([]domain.SearchResult, 0, len(ix.points))
	for _, p := range ix.points {
		if filter != nil && filter.DocumentID != "" && p.DocumentID != filter.DocumentID {
			continue
		}
		results = append(results, domain.SearchResult{
			Text:       p.Text,
			Score:      cosine(p.Vector, vector),
			DocumentID: p.DocumentID,
			ChunkIndex: p.ChunkIndex,
			Title:      p.Title,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DeleteByDocument removes every point of the document; removing a
// document with no points is a success.
func (ix *Index) DeleteByDocument(_ context.Context, documentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for id, p := range ix.points {
		if p.DocumentID == documentID {
			delete(ix.points, id)
		}
	}
	return nil
}

// Count reports how many points a document currently has.
func (ix *Index) Count(documentID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, p := range ix.points {
		if documentID == "" || p.DocumentID == documentID {
			n++
		}
	}
	return n
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
