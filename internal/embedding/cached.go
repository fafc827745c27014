// Package embedding provides wrappers shared by the concrete embedder
// implementations in its subpackages.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"lexindex/internal/domain"
)

// DefaultCacheSize is the default number of embeddings kept in memory.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache so repeated texts
// (re-indexed chunks, repeated queries) skip the backend round trip.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float64]
}

// NewCached creates a cached embedder wrapping inner.
func NewCached(inner domain.Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float64](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Dimension returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Embed returns a cached embedding when available, otherwise computes
// and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch checks the cache per text and only sends the misses to
// the inner embedder, preserving input order in the result.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float64, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := c.cache.Get(cacheKey(t)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return results, nil
	}
	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		results[i] = vecs[j]
		c.cache.Add(cacheKey(texts[i]), vecs[j])
	}
	return results, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
