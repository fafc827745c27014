// Package service contains the indexing orchestrator: it composes the
// loader, chunker, embedder and vector index into the per-document
// pipeline and reports terminal status to the document store.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"lexindex/internal/domain"
)

// Config tunes pipeline batching and retry behaviour.
type Config struct {
	// EmbeddingBatchSize bounds texts per embedding backend call.
	EmbeddingBatchSize int
	// EmbedConcurrency bounds embedding sub-batches in flight. Point
	// ids come from chunk indexes, never batch position, so reordering
	// between sub-batches is safe.
	EmbedConcurrency int
	Retry            RetryConfig
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// IndexService implements domain.IndexService. Concurrent runs for
// different documents are safe (disjoint point-id namespaces); runs
// for the same document must be serialized by the caller.
type IndexService struct {
	loader   domain.Loader
	chunker  domain.Chunker
	embedder domain.Embedder
	index    domain.VectorIndex
	docs     domain.DocumentStore

	embedBatch  int
	concurrency int
	retry       RetryConfig
	log         *slog.Logger
}

var _ domain.IndexService = (*IndexService)(nil)

// New wires the pipeline from explicitly constructed components.
func New(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder,
	index domain.VectorIndex, docs domain.DocumentStore, cfg Config) *IndexService {
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 20
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Retry.applyDefaults()
	return &IndexService{
		loader:      loader,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		docs:        docs,
		embedBatch:  cfg.EmbeddingBatchSize,
		concurrency: cfg.EmbedConcurrency,
		retry:       cfg.Retry,
		log:         cfg.Logger,
	}
}

// IndexDocument runs the full pipeline for one document and records
// the terminal status. Any failure after the Indexing transition marks
// the document Error; points upserted before the failure remain, so
// Error means "indeterminate partial state, safe to reindex".
func (s *IndexService) IndexDocument(ctx context.Context, documentID, sourceLocator, title string) error {
	if err := s.docs.UpdateStatus(ctx, documentID, domain.StatusIndexing); err != nil {
		s.log.Warn("could not mark document as indexing", "document", documentID, "cause", err)
	}
	if err := s.runPipeline(ctx, documentID, sourceLocator, title); err != nil {
		// terminal status must land even when the failure is the caller's
		// context being cancelled; a failed status write must not mask the
		// original error
		if serr := s.docs.UpdateStatus(context.WithoutCancel(ctx), documentID, domain.StatusError); serr != nil {
			s.log.Error("could not record error status", "document", documentID, "cause", serr)
		}
		return fmt.Errorf("index document %s: %w", documentID, err)
	}
	if err := s.docs.UpdateStatus(context.WithoutCancel(ctx), documentID, domain.StatusIndexed); err != nil {
		return fmt.Errorf("index document %s: record indexed status: %w", documentID, err)
	}
	s.log.Info("document indexed", "document", documentID)
	return nil
}

func (s *IndexService) runPipeline(ctx context.Context, documentID, sourceLocator, title string) error {
	text, err := s.loader.Load(ctx, sourceLocator)
	if err != nil {
		return err
	}
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmptyDocument, sourceLocator)
	}
	s.log.Debug("document chunked", "document", documentID, "chunks", len(chunks))

	dimension := s.embedder.Dimension()
	if err := s.withRetry(ctx, "ensure collection", func() error {
		return s.index.EnsureCollection(ctx, dimension)
	}); err != nil {
		return err
	}

	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(chunks); start += s.embedBatch {
		start := start
		end := start + s.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, ch := range chunks[start:end] {
				texts[i] = ch.Text
			}
			var vecs [][]float64
			err := s.withRetry(gctx, "embed batch", func() error {
				var err error
				vecs, err = s.embedder.EmbedBatch(gctx, texts)
				return err
			})
			if err != nil {
				return err
			}
			for i, v := range vecs {
				if len(v) != dimension {
					return fmt.Errorf("%w: chunk %d has %d dimensions, collection has %d",
						domain.ErrDimensionMismatch, start+i, len(v), dimension)
				}
				// sub-batches own disjoint ranges of vectors
				vectors[start+i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	points := make([]domain.IndexPoint, len(chunks))
	for i, ch := range chunks {
		points[i] = domain.IndexPoint{
			ID:         domain.PointID(documentID, ch.Index),
			Vector:     vectors[i],
			Text:       ch.Text,
			DocumentID: documentID,
			ChunkIndex: ch.Index,
			Title:      title,
		}
	}
	return s.withRetry(ctx, "upsert points", func() error {
		return s.index.Upsert(ctx, points)
	})
}

// ReindexDocument deletes the document's points and indexes it again.
// Point ids are deterministic, so an interrupted reindex leaves the
// document in Error with no stale points rather than half-indexed.
func (s *IndexService) ReindexDocument(ctx context.Context, documentID, sourceLocator, title string) error {
	if err := s.RemoveDocumentFromIndex(ctx, documentID); err != nil {
		return err
	}
	return s.IndexDocument(ctx, documentID, sourceLocator, title)
}

// RemoveDocumentFromIndex deletes every point of the document from the
// vector index.
func (s *IndexService) RemoveDocumentFromIndex(ctx context.Context, documentID string) error {
	return s.withRetry(ctx, "delete points", func() error {
		return s.index.DeleteByDocument(ctx, documentID)
	})
}

// SimilaritySearch embeds the query and returns the top-k matching
// chunk payloads, optionally restricted to one document.
func (s *IndexService) SimilaritySearch(ctx context.Context, query string, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.index.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return results, nil
}
