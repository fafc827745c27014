package domain

import "context"

// Loader resolves a source locator to raw text. Unresolvable locators
// and unsupported formats degrade to deterministic placeholder content
// instead of failing, so indexing stays demonstrable without the
// original sources.
type Loader interface {
	Load(ctx context.Context, sourceLocator string) (string, error)
}

// Chunker splits normalized text into an ordered sequence of bounded,
// overlapping chunks. Must be a pure function of its input: identical
// text always yields an identical chunk sequence.
type Chunker interface {
	Chunk(text string) []Chunk
}

// Embedder converts text into fixed-dimension vectors via an embedding
// backend. EmbedBatch output has the same order and length as its
// input; a mismatched backend response is an error, never reconciled.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// VectorIndex owns a single named collection in the vector backend.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent and is a no-op
	// when it already exists. Existence is checked by name only;
	// changing the dimension of an existing collection is an operator
	// error, not something handled here.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert writes points with overwrite semantics; calling it again
	// with the same ids replaces rather than appends.
	Upsert(ctx context.Context, points []IndexPoint) error
	// Search returns at most k results ordered by descending score.
	// With a filter, only points of that document are returned.
	Search(ctx context.Context, vector []float64, k int, filter *SearchFilter) ([]SearchResult, error)
	// DeleteByDocument removes every point of the document. Deleting a
	// document with no points is a success.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// DocumentStore is the external owner of document metadata. The
// pipeline reads locators and titles and writes status transitions.
type DocumentStore interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	GetSourceLocator(ctx context.Context, id string) (string, error)
}

// IndexService is the indexing orchestrator exposed to callers.
type IndexService interface {
	IndexDocument(ctx context.Context, documentID, sourceLocator, title string) error
	ReindexDocument(ctx context.Context, documentID, sourceLocator, title string) error
	RemoveDocumentFromIndex(ctx context.Context, documentID string) error
	SimilaritySearch(ctx context.Context, query string, k int, filter *SearchFilter) ([]SearchResult, error)
}
