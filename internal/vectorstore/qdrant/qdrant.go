// Package qdrant is a minimal REST adapter owning a single named
// collection in a Qdrant instance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lexindex/internal/domain"
)

// Index adapts the domain.VectorIndex contract onto Qdrant's
// collection API. Collection name, distance metric and upsert batch
// size are fixed at construction.
type Index struct {
	url         string
	apiKey      string
	collection  string
	distance    string
	upsertBatch int
	client      *http.Client
}

// Config configures the adapter.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	// Distance defaults to Cosine.
	Distance string
	Timeout  time.Duration
	// UpsertBatchSize bounds points per upsert request.
	UpsertBatchSize int
}

// NewIndex creates a Qdrant adapter from explicit configuration.
func NewIndex(cfg Config) *Index {
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 10
	}
	return &Index{
		url:         cfg.URL,
		apiKey:      cfg.APIKey,
		collection:  cfg.Collection,
		distance:    cfg.Distance,
		upsertBatch: cfg.UpsertBatchSize,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// EnsureCollection creates the collection if absent. Existence is
// checked by name only; a dimension change on an existing collection
// is an operator error and is not detected here.
func (ix *Index) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorBackend, dimension)
	}
	status, err := ix.do(ctx, http.MethodGet, ix.collectionURL(""), nil, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": ix.distance,
		},
	}
	if _, err := ix.do(ctx, http.MethodPut, ix.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("%w: create collection: %v", domain.ErrVectorBackend, err)
	}
	return nil
}

// Upsert writes points in bounded sub-batches. Point keys are derived
// from the deterministic point id, so repeated calls overwrite rather
// than append.
func (ix *Index) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	for start := 0; start < len(points); start += ix.upsertBatch {
		end := start + ix.upsertBatch
		if end > len(points) {
			end = len(points)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]any{
				"id":     PointKey(p.DocumentID, p.ChunkIndex),
				"vector": p.Vector,
				"payload": map[string]any{
					"text":        p.Text,
					"document_id": p.DocumentID,
					"chunk_index": p.ChunkIndex,
					"title":       p.Title,
				},
			})
		}
		body := map[string]any{"points": batch}
		if _, err := ix.do(ctx, http.MethodPut, ix.collectionURL("/points?wait=true"), body, nil); err != nil {
			return fmt.Errorf("%w: upsert: %v", domain.ErrVectorBackend, err)
		}
	}
	return nil
}

// Search returns at most k results ordered by descending score,
// restricted to one document when a filter is given.
func (ix *Index) Search(ctx context.Context, vector []float64, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if filter != nil && filter.DocumentID != "" {
		body["filter"] = documentFilter(filter.DocumentID)
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if _, err := ix.do(ctx, http.MethodPost, ix.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrVectorBackend, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		var payload struct {
			Text       string `json:"text"`
			DocumentID string `json:"document_id"`
			ChunkIndex int    `json:"chunk_index"`
			Title      string `json:"title"`
		}
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			continue
		}
		results = append(results, domain.SearchResult{
			Text:       payload.Text,
			Score:      r.Score,
			DocumentID: payload.DocumentID,
			ChunkIndex: payload.ChunkIndex,
			Title:      payload.Title,
		})
	}
	return results, nil
}

// DeleteByDocument removes all points whose payload document_id
// matches. Deleting a document with no points succeeds.
func (ix *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{"filter": documentFilter(documentID)}
	if _, err := ix.do(ctx, http.MethodPost, ix.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("%w: delete by document: %v", domain.ErrVectorBackend, err)
	}
	return nil
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "document_id", "match": map[string]any{"value": documentID}},
		},
	}
}

func (ix *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", ix.url, ix.collection, suffix)
}

func (ix *Index) do(ctx context.Context, method, url string, body any, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
