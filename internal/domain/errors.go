package domain

import "errors"

// Pipeline error taxonomy. Loader-level read/format problems are
// recovered locally via placeholder content and never reach callers;
// everything below is fatal to the current indexing run.
var (
	// ErrEmptyDocument means chunking produced zero chunks.
	ErrEmptyDocument = errors.New("document produced no chunks")

	// ErrEmbeddingBackend means the embedding backend call failed or
	// returned a malformed or short response.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrVectorBackend means a collection create, upsert, search or
	// delete against the vector backend failed.
	ErrVectorBackend = errors.New("vector backend error")

	// ErrDimensionMismatch means a vector's length does not equal the
	// collection dimension. Never coerced, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Retryable reports whether an indexing failure is worth retrying.
// Only transient backend failures qualify; empty documents and
// dimension mismatches will fail the same way every time.
func Retryable(err error) bool {
	if errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrEmptyDocument) {
		return false
	}
	return errors.Is(err, ErrEmbeddingBackend) || errors.Is(err, ErrVectorBackend)
}
