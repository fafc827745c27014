package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexindex/internal/chunker"
	"lexindex/internal/docstore"
	"lexindex/internal/domain"
	"lexindex/internal/embedding/static"
	"lexindex/internal/vectorstore/memory"
)

type fakeLoader struct {
	mu   sync.Mutex
	text string
}

func (f *fakeLoader) Load(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeLoader) setText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

type stubChunker struct{ n int }

func (s stubChunker) Chunk(string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, s.n)
	for i := 0; i < s.n; i++ {
		chunks = append(chunks, domain.Chunk{
			Text:      fmt.Sprintf("chunk %d", i),
			Index:     i,
			StartChar: i * 10,
			EndChar:   i*10 + 10,
		})
	}
	return chunks
}

type fakeEmbedder struct {
	mu         sync.Mutex
	dim        int
	batchCalls int
	failures   int
	failErr    error
	wrongDim   bool
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.failures > 0 {
		f.failures--
		return nil, f.failErr
	}
	dim := f.dim
	if f.wrongDim {
		dim++
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		v := make([]float64, dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls
}

type spyIndex struct {
	*memory.Index
	upsertCalls int
	lastPoints  []domain.IndexPoint
}

func (s *spyIndex) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	s.upsertCalls++
	s.lastPoints = points
	return s.Index.Upsert(ctx, points)
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newDoc(t *testing.T, docs domain.DocumentStore, id string) {
	t.Helper()
	require.NoError(t, docs.Create(context.Background(), domain.Document{
		ID: id, Title: "Title " + id, SourceLocator: id + ".txt",
	}))
}

func statusOf(t *testing.T, docs domain.DocumentStore, id string) domain.Status {
	t.Helper()
	doc, err := docs.Get(context.Background(), id)
	require.NoError(t, err)
	return doc.Status
}

func TestIndexDocumentCreatesPointPerChunk(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	index := &spyIndex{Index: memory.NewIndex()}
	docs := docstore.NewMemoryStore()
	svc := New(&fakeLoader{text: "irrelevant"}, stubChunker{n: 2}, emb, index, docs, Config{
		EmbeddingBatchSize: 1,
		Retry:              fastRetry(),
	})
	newDoc(t, docs, "doc1")

	require.NoError(t, svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "Title doc1"))

	assert.Equal(t, 2, emb.calls(), "batch size 1 over 2 chunks means 2 embedding calls")
	assert.Equal(t, 1, index.upsertCalls, "all points fit one upsert call")
	require.Len(t, index.lastPoints, 2)
	assert.Equal(t, "doc1-0", index.lastPoints[0].ID)
	assert.Equal(t, "doc1-1", index.lastPoints[1].ID)
	assert.Equal(t, domain.StatusIndexed, statusOf(t, docs, "doc1"))
}

func TestIndexDocumentPointIDsIndependentOfBatching(t *testing.T) {
	for _, batchSize := range []int{1, 2, 7, 100} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			emb := &fakeEmbedder{dim: 4}
			index := &spyIndex{Index: memory.NewIndex()}
			docs := docstore.NewMemoryStore()
			svc := New(&fakeLoader{text: "x"}, stubChunker{n: 9}, emb, index, docs, Config{
				EmbeddingBatchSize: batchSize,
				Retry:              fastRetry(),
			})
			newDoc(t, docs, "doc1")

			require.NoError(t, svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T"))
			require.Len(t, index.lastPoints, 9)
			for i, p := range index.lastPoints {
				assert.Equal(t, fmt.Sprintf("doc1-%d", i), p.ID)
				assert.Equal(t, i, p.ChunkIndex)
			}
		})
	}
}

func TestIndexDocumentEmptyDocument(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	docs := docstore.NewMemoryStore()
	svc := New(&fakeLoader{text: ""}, stubChunker{n: 0}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, docs, "doc1")

	err := svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	assert.Equal(t, 0, emb.calls(), "nothing should be embedded")
	assert.Equal(t, domain.StatusError, statusOf(t, docs, "doc1"))
}

func TestIndexDocumentEmbedFailureSetsErrorStatus(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, failures: 100, failErr: fmt.Errorf("%w: boom", domain.ErrEmbeddingBackend)}
	docs := docstore.NewMemoryStore()
	svc := New(&fakeLoader{text: "x"}, stubChunker{n: 1}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, docs, "doc1")

	err := svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T")
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
	assert.Equal(t, 3, emb.calls(), "transient backend errors are retried up to max attempts")
	assert.Equal(t, domain.StatusError, statusOf(t, docs, "doc1"))
}

func TestIndexDocumentRecoversFromTransientFailure(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, failures: 1, failErr: fmt.Errorf("%w: flaky", domain.ErrEmbeddingBackend)}
	docs := docstore.NewMemoryStore()
	svc := New(&fakeLoader{text: "x"}, stubChunker{n: 1}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, docs, "doc1")

	require.NoError(t, svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T"))
	assert.Equal(t, 2, emb.calls())
	assert.Equal(t, domain.StatusIndexed, statusOf(t, docs, "doc1"))
}

func TestIndexDocumentDimensionMismatchNotRetried(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, wrongDim: true}
	docs := docstore.NewMemoryStore()
	svc := New(&fakeLoader{text: "x"}, stubChunker{n: 1}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, docs, "doc1")

	err := svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, emb.calls(), "dimension mismatches must not be retried")
	assert.Equal(t, domain.StatusError, statusOf(t, docs, "doc1"))
}

func TestReindexRemovesStalePoints(t *testing.T) {
	emb := static.New(64)
	index := memory.NewIndex()
	docs := docstore.NewMemoryStore()
	ld := &fakeLoader{}
	ck := chunker.New(40, 0, 0)
	svc := New(ld, ck, emb, index, docs, Config{Retry: fastRetry()})
	newDoc(t, docs, "doc1")
	ctx := context.Background()

	longText := strings.Repeat("The lessor retains all rights under this clause. ", 20)
	ld.setText(longText)
	require.NoError(t, svc.IndexDocument(ctx, "doc1", "doc1.txt", "T"))
	before := index.Count("doc1")
	require.Greater(t, before, 3)

	shortText := "A short amendment. It replaces the previous text entirely. Nothing else remains."
	ld.setText(shortText)
	require.NoError(t, svc.ReindexDocument(ctx, "doc1", "doc1.txt", "T"))

	want := len(ck.Chunk(shortText))
	require.Greater(t, want, 0)
	assert.Equal(t, want, index.Count("doc1"), "stale points from the first run must be gone")

	results, err := svc.SimilaritySearch(ctx, "amendment", before+want, &domain.SearchFilter{DocumentID: "doc1"})
	require.NoError(t, err)
	assert.Len(t, results, want)
	for _, r := range results {
		assert.Less(t, r.ChunkIndex, want)
	}
	assert.Equal(t, domain.StatusIndexed, statusOf(t, docs, "doc1"))
}

func TestSimilaritySearchRespectsKAndFilter(t *testing.T) {
	emb := static.New(64)
	index := memory.NewIndex()
	docs := docstore.NewMemoryStore()
	ld := &fakeLoader{}
	svc := New(ld, chunker.New(40, 0, 0), emb, index, docs, Config{Retry: fastRetry()})
	ctx := context.Background()

	newDoc(t, docs, "docA")
	newDoc(t, docs, "docB")
	ld.setText(strings.Repeat("Arbitration clauses govern dispute resolution here. ", 10))
	require.NoError(t, svc.IndexDocument(ctx, "docA", "docA.txt", "A"))
	ld.setText(strings.Repeat("Confidentiality obligations survive termination. ", 10))
	require.NoError(t, svc.IndexDocument(ctx, "docB", "docB.txt", "B"))

	results, err := svc.SimilaritySearch(ctx, "arbitration", 2, &domain.SearchFilter{DocumentID: "docA"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "docA", r.DocumentID)
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRemoveDocumentFromIndex(t *testing.T) {
	emb := static.New(64)
	index := memory.NewIndex()
	docs := docstore.NewMemoryStore()
	ld := &fakeLoader{text: strings.Repeat("Recitals and definitions apply throughout. ", 10)}
	svc := New(ld, chunker.New(40, 0, 0), emb, index, docs, Config{Retry: fastRetry()})
	ctx := context.Background()
	newDoc(t, docs, "doc1")

	require.NoError(t, svc.IndexDocument(ctx, "doc1", "doc1.txt", "T"))
	require.Greater(t, index.Count("doc1"), 0)

	require.NoError(t, svc.RemoveDocumentFromIndex(ctx, "doc1"))
	assert.Equal(t, 0, index.Count("doc1"))

	// removing an absent document is a success
	require.NoError(t, svc.RemoveDocumentFromIndex(ctx, "doc1"))
}

// failingStatusStore rejects one specific status transition.
type failingStatusStore struct {
	domain.DocumentStore
	failOn domain.Status
}

func (s *failingStatusStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if status == s.failOn {
		return errors.New("document store unavailable")
	}
	return s.DocumentStore.UpdateStatus(ctx, id, status)
}

func TestErrorStatusWriteFailureDoesNotMaskOriginalError(t *testing.T) {
	inner := docstore.NewMemoryStore()
	docs := &failingStatusStore{DocumentStore: inner, failOn: domain.StatusError}
	emb := &fakeEmbedder{dim: 4, failures: 100, failErr: fmt.Errorf("%w: down", domain.ErrEmbeddingBackend)}
	svc := New(&fakeLoader{text: "x"}, stubChunker{n: 1}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, inner, "doc1")

	err := svc.IndexDocument(context.Background(), "doc1", "doc1.txt", "T")
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend, "the original failure must propagate")
}

// ctxStore rejects writes once its context is done, the way a
// database-backed store does.
type ctxStore struct {
	domain.DocumentStore
}

func (s *ctxStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DocumentStore.UpdateStatus(ctx, id, status)
}

func TestCancelledRunEndsInErrorStatus(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	inner := docstore.NewMemoryStore()
	docs := &ctxStore{DocumentStore: inner}
	svc := New(&fakeLoader{text: "x"}, stubChunker{n: 1}, emb, memory.NewIndex(), docs, Config{Retry: fastRetry()})
	newDoc(t, inner, "doc1")
	require.NoError(t, inner.UpdateStatus(context.Background(), "doc1", domain.StatusIndexing))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.IndexDocument(ctx, "doc1", "doc1.txt", "T")
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, statusOf(t, inner, "doc1"),
		"a cancelled run must not strand the document in indexing")
}
