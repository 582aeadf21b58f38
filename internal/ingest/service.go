package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetassist/docpipeline/internal/models"
	"github.com/vetassist/docpipeline/internal/rag"
	"github.com/vetassist/docpipeline/internal/storage"
)

var (
	// ErrAlreadyProcessing means another ingestion attempt holds the
	// document; concurrent re-ingestion of the same document is a caller
	// bug, never silently merged.
	ErrAlreadyProcessing = errors.New("ingest: document is already being processed")

	ErrNotFound = errors.New("ingest: document not found")
)

// Service owns the documents table and the raw-file storage for uploads.
// Status transitions go through the Mark* methods so the state machine
// lives in one place.
type Service struct {
	db      *pgxpool.Pool
	storage storage.Storage
	bucket  string
}

func NewService(db *pgxpool.Pool, store storage.Storage, bucket string) *Service {
	return &Service{db: db, storage: store, bucket: bucket}
}

type UploadRequest struct {
	OwnerID  *uuid.UUID // nil uploads into the shared knowledge base
	Title    string
	FileType string
	FileSize int64
	Data     io.Reader
}

// Upload stores the raw file and creates the document row in pending.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	docID := uuid.New()

	ownerSegment := "shared"
	if req.OwnerID != nil {
		ownerSegment = req.OwnerID.String()
	}
	path := fmt.Sprintf("%s/%s/%s%s", ownerSegment, docID, time.Now().Format("20060102"), req.FileType)

	if err := s.storage.Upload(ctx, s.bucket, path, req.Data, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, owner_id, title, file_path, file_type, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+documentColumns,
		docID, req.OwnerID, req.Title, path, req.FileType, req.FileSize, models.DocStatusPending,
	).Scan(documentFields(&doc)...)
	if err != nil {
		// Orphaned raw files are worse than a failed upload.
		_ = s.storage.Delete(ctx, s.bucket, path)
		return nil, fmt.Errorf("insert document: %w", err)
	}

	return &doc, nil
}

const documentColumns = "id, owner_id, title, file_path, file_type, file_size_bytes, status, error_detail, summary, created_at, updated_at"

func documentFields(d *models.Document) []any {
	return []any{&d.ID, &d.OwnerID, &d.Title, &d.FilePath, &d.FileType, &d.FileSizeBytes, &d.Status, &d.ErrorDetail, &d.Summary, &d.CreatedAt, &d.UpdatedAt}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = $1", id,
	).Scan(documentFields(&doc)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// ListForOwner returns the owner's documents, newest first. A nil owner
// lists the shared knowledge base.
func (s *Service) ListForOwner(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]models.Document, error) {
	ownerClause := "owner_id IS NULL"
	args := []any{limit, offset}
	if ownerID != nil {
		ownerClause = "owner_id = $3"
		args = append(args, *ownerID)
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM documents WHERE %s ORDER BY created_at DESC LIMIT $1 OFFSET $2", documentColumns, ownerClause),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(documentFields(&d)...); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document row (chunks cascade) and the raw file.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if doc.FilePath != "" {
		_ = s.storage.Delete(ctx, s.bucket, doc.FilePath)
	}

	_, err = s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	return err
}

// MarkProcessing claims the document for one ingestion attempt. The
// compare-and-swap on status serializes re-ingestion: a document already
// in processing cannot be claimed again.
func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET status = $2, error_detail = NULL, summary = NULL, updated_at = now()
		 WHERE id = $1 AND status <> $2`,
		id, models.DocStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyProcessing
	}
	return nil
}

// MarkCompleted records the summary and finishes the attempt. Summary is
// set only here, keeping the completed-only invariant in one statement.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $2, summary = $3, error_detail = NULL, updated_at = now() WHERE id = $1`,
		id, models.DocStatusCompleted, summary,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *Service) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $2, error_detail = $3, summary = NULL, updated_at = now() WHERE id = $1`,
		id, models.DocStatusError, detail,
	)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	return nil
}

// CompletedSummaries implements rag.SummarySource.
func (s *Service) CompletedSummaries(ctx context.Context, ownerID *uuid.UUID, limit int) ([]rag.DocumentSummary, error) {
	ownerClause := "owner_id IS NULL"
	args := []any{models.DocStatusCompleted, limit}
	if ownerID != nil {
		ownerClause = "owner_id = $3"
		args = append(args, *ownerID)
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT title, summary FROM documents
		 WHERE %s AND status = $1 AND summary IS NOT NULL
		 ORDER BY created_at DESC LIMIT $2`, ownerClause),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []rag.DocumentSummary
	for rows.Next() {
		var ds rag.DocumentSummary
		if err := rows.Scan(&ds.Title, &ds.Summary); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

// SweepAbandoned fails documents stuck in processing longer than
// olderThan, so a crashed or timed-out ingestion can never pin the
// processing state forever. Returns how many documents were swept.
func (s *Service) SweepAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error_detail = 'ingestion abandoned', summary = NULL, updated_at = now()
		 WHERE status = $2 AND updated_at < now() - $3::interval`,
		models.DocStatusError, models.DocStatusProcessing, fmt.Sprintf("%f seconds", olderThan.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep abandoned: %w", err)
	}
	return tag.RowsAffected(), nil
}
