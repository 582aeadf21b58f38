package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an owner-scoped unit of uploaded content. A nil OwnerID marks
// a globally shared knowledge-base document.
type Document struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	OwnerID       *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	Title         string     `json:"title" db:"title"`
	FilePath      string     `json:"file_path,omitempty" db:"file_path"`
	FileType      string     `json:"file_type,omitempty" db:"file_type"`
	FileSizeBytes int64      `json:"file_size_bytes,omitempty" db:"file_size_bytes"`
	Status        string     `json:"status" db:"status"`
	ErrorDetail   *string    `json:"error_detail,omitempty" db:"error_detail"`
	Summary       *string    `json:"summary,omitempty" db:"summary"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// DocumentChunk is a contiguous token-bounded slice of a document's
// extracted text. Chunks are written in one batch during ingestion and are
// immutable afterwards; they are removed only when the document is deleted.
type DocumentChunk struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	DocumentID  uuid.UUID  `json:"document_id" db:"document_id"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	ChunkIndex  int        `json:"chunk_index" db:"chunk_index"`
	TotalChunks int        `json:"total_chunks" db:"total_chunks"`
	Content     string     `json:"content" db:"content"`
	Embedding   []float32  `json:"-" db:"embedding"`
	TokenCount  int        `json:"token_count" db:"token_count"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Document processing states. Summary is non-nil only in completed;
// error_detail only in error. The only way out of completed or error is an
// explicit re-ingestion, which re-enters processing.
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusError      = "error"
)
