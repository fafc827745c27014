package domain

import "strconv"

// Status is the lifecycle state of a document in the external store.
type Status string

const (
	StatusPending  Status = "pending"
	StatusIndexing Status = "indexing"
	StatusIndexed  Status = "indexed"
	StatusError    Status = "error"
)

// Document references a record owned by the document store. The
// pipeline reads the locator and title and writes the status.
type Document struct {
	ID            string
	Title         string
	SourceLocator string
	Status        Status
}

// Chunk is a bounded, possibly overlapping substring of a normalized
// document, the unit of embedding and retrieval. StartChar/EndChar are
// offsets into the normalized source text.
type Chunk struct {
	Text      string
	Index     int
	StartChar int
	EndChar   int
}

// IndexPoint is one vector plus payload stored in the collection.
// ID is deterministic: documentID + "-" + chunkIndex, so re-running
// the pipeline with unchanged chunking overwrites rather than appends.
type IndexPoint struct {
	ID         string
	Vector     []float64
	Text       string
	DocumentID string
	ChunkIndex int
	Title      string
}

// PointID builds the deterministic point id for a chunk of a document.
func PointID(documentID string, chunkIndex int) string {
	return documentID + "-" + strconv.Itoa(chunkIndex)
}

// SearchResult is a matching chunk payload with a similarity score.
type SearchResult struct {
	Text       string
	Score      float64
	DocumentID string
	ChunkIndex int
	Title      string
}

// SearchFilter restricts similarity search to a single document.
type SearchFilter struct {
	DocumentID string
}
