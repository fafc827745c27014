// Package static provides a deterministic hash-based embedder. It
// needs no network or model and trades semantic quality for
// availability, which makes it the fallback for degraded environments
// and the default embedder in tests.
package static

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Embedder generates fixed-dimension embeddings by hashing word tokens
// and character n-grams into vector slots.
type Embedder struct {
	dimension int
}

// New creates a static embedder producing vectors of the given dimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &Embedder{dimension: dimension}
}

// Dimension returns the configured vector dimension.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed generates a normalized embedding for a single text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	vector := make([]float64, e.dimension)
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return vector, nil
	}
	tokens := tokenRe.FindAllString(lowered, -1)
	for _, tok := range tokens {
		vector[hashToIndex(tok, e.dimension)] += tokenWeight
	}
	joined := strings.Join(tokens, " ")
	for i := 0; i+ngramSize <= len(joined); i++ {
		vector[hashToIndex(joined[i:i+ngramSize], e.dimension)] += ngramWeight
	}
	normalize(vector)
	return vector, nil
}

// EmbedBatch embeds each text independently; output order and length
// match the input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func hashToIndex(s string, dimension int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dimension))
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}
