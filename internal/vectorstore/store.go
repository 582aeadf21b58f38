package vectorstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidThreshold = errors.New("vectorstore: threshold must be in [0,1]")
	ErrInvalidCount     = errors.New("vectorstore: max results must be >= 1")
)

// Chunk is one embedded slice of a document as the store persists it.
// OwnerID is denormalized from the parent document; nil marks a globally
// shared document.
type Chunk struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	OwnerID     *uuid.UUID
	ChunkIndex  int
	TotalChunks int
	Content     string
	Embedding   []float32
	TokenCount  int
}

// SearchOptions scopes a similarity search. A nil OwnerID searches the
// global (shared) documents; a non-nil OwnerID searches only that owner's
// documents. Candidates score strictly above Threshold, capped at
// MaxResults.
type SearchOptions struct {
	OwnerID    *uuid.UUID
	Threshold  float64
	MaxResults int
}

func (o SearchOptions) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if o.MaxResults < 1 {
		return ErrInvalidCount
	}
	return nil
}

// SearchResult pairs a matched chunk with its cosine-similarity score.
type SearchResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score"`
}

// Store persists embedded chunks and ranks them by similarity.
//
// PutChunks is transactional per document: either every chunk is stored or
// none is, and any previously stored chunks for the document are replaced
// in the same transaction. Chunks are never deleted individually by
// callers; DeleteForDocument exists for ingestion rollback and cascades.
type Store interface {
	PutChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	DeleteForDocument(ctx context.Context, documentID uuid.UUID) error
}
