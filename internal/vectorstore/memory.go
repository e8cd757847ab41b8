// internal/vectorstore/memory.go
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "cv-pipeline/internal/common/errors"
)

type memoryEntry struct {
	doc    Document
	vector []float32
}

// MemoryStore is an in-process cosine-similarity index.
type MemoryStore struct {
	embedder Embedder

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Upsert(ctx context.Context, docs []Document) error {
	embedded := make([]memoryEntry, 0, len(docs))
	for _, d := range docs {
		vec, err := s.embedder.Embed(ctx, d.Text)
		if err != nil {
			return apperrors.NewVectorStoreError("upsert", fmt.Errorf("embed %s: %w", d.ID, err))
		}
		embedded = append(embedded, memoryEntry{doc: d, vector: vec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embedded {
		s.entries[e.doc.ID] = e
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("search", err)
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		if !filter.matches(e.doc.Metadata) {
			continue
		}
		matches = append(matches, Match{
			ID:       e.doc.ID,
			Score:    Cosine(qvec, e.vector),
			Text:     e.doc.Text,
			Metadata: e.doc.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
