package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a brute-force in-memory Store used in tests and for local
// development without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[uuid.UUID][]Chunk // keyed by document ID
	order  []uuid.UUID           // document IDs in insertion order

	// putHook, when set, runs before each chunk is staged; returning an
	// error aborts the put without committing anything.
	putHook func(c Chunk) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[uuid.UUID][]Chunk)}
}

func (s *MemoryStore) PutChunks(_ context.Context, documentID uuid.UUID, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage everything first so a mid-batch failure leaves the store
	// untouched, matching the transactional Postgres behavior.
	staged := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if s.putHook != nil {
			if err := s.putHook(c); err != nil {
				return err
			}
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		staged = append(staged, c)
	}

	if _, ok := s.chunks[documentID]; !ok {
		s.order = append(s.order, documentID)
	}
	s.chunks[documentID] = staged
	return nil
}

func (s *MemoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Scan documents in insertion order, not map order, so that the stable
	// sort below gives equal-scoring results a deterministic tie order.
	var results []SearchResult
	for _, docID := range s.order {
		for _, c := range s.chunks[docID] {
			if !sameScope(c.OwnerID, opts.OwnerID) {
				continue
			}
			score := cosineSimilarity(query, c.Embedding)
			if score <= opts.Threshold {
				continue
			}
			results = append(results, SearchResult{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				Content:    c.Content,
				ChunkIndex: c.ChunkIndex,
				Score:      score,
			})
		}
	}

	// Stable: equal scores keep candidate order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

func (s *MemoryStore) DeleteForDocument(_ context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[documentID]; ok {
		delete(s.chunks, documentID)
		for i, id := range s.order {
			if id == documentID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ChunksForDocument returns the stored chunks for one document.
func (s *MemoryStore) ChunksForDocument(documentID uuid.UUID) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chunk, len(s.chunks[documentID]))
	copy(out, s.chunks[documentID])
	return out
}

func sameScope(owner, scope *uuid.UUID) bool {
	if scope == nil {
		return owner == nil
	}
	return owner != nil && *owner == *scope
}

func cosineSimilarity(a, b []float32) float64 {
	// A dimension mismatch means the embedder and the stored vectors
	// disagree; score it zero instead of comparing a truncated prefix.
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
