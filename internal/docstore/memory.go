package docstore

import (
	"context"
	"sort"
	"sync"

	"lexindex/internal/domain"
)

// MemoryStore is an in-memory DocumentStore for tests and throwaway runs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]domain.Document)}
}

func (s *MemoryStore) Create(_ context.Context, doc domain.Document) error {
	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) GetSourceLocator(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.SourceLocator, nil
}
