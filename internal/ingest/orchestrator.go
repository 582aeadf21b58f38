package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vetassist/docpipeline/internal/embedding"
	"github.com/vetassist/docpipeline/internal/models"
	"github.com/vetassist/docpipeline/internal/storage"
	"github.com/vetassist/docpipeline/internal/vectorstore"
	"github.com/vetassist/docpipeline/pkg/chunker"
	"github.com/vetassist/docpipeline/pkg/textextract"
	"github.com/vetassist/docpipeline/pkg/tokenizer"
)

// DocumentStore is the slice of Service the orchestrator needs; tests
// substitute an in-memory implementation.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, summary string) error
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
}

// Embedder turns chunk texts into vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces the whole-document summary recorded on completion.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// Orchestrator drives one ingestion attempt through the document state
// machine: pending -> processing -> completed | error. It never retries on
// its own; a failed attempt is terminal until the caller explicitly
// re-triggers ingestion.
type Orchestrator struct {
	docs       DocumentStore
	chunker    *chunker.Chunker
	embedder   Embedder
	store      vectorstore.Store
	summarizer Summarizer
	storage    storage.Storage
	bucket     string
	maxTokens  int
}

func NewOrchestrator(
	docs DocumentStore,
	ch *chunker.Chunker,
	embedder Embedder,
	store vectorstore.Store,
	summarizer Summarizer,
	st storage.Storage,
	bucket string,
	maxTokens int,
) *Orchestrator {
	if maxTokens <= 0 {
		maxTokens = chunker.DefaultMaxTokens
	}
	return &Orchestrator{
		docs:       docs,
		chunker:    ch,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		storage:    st,
		bucket:     bucket,
		maxTokens:  maxTokens,
	}
}

// IngestRequest carries pre-extracted content, for callers that already
// hold the document text.
type IngestRequest struct {
	DocumentID uuid.UUID
	Content    string
}

// Ingest runs one attempt over provided content.
func (o *Orchestrator) Ingest(ctx context.Context, req IngestRequest) error {
	doc, err := o.docs.GetByID(ctx, req.DocumentID)
	if err != nil {
		return err
	}
	if err := o.docs.MarkProcessing(ctx, doc.ID); err != nil {
		return err
	}
	return o.run(ctx, doc, req.Content)
}

// IngestDocument runs one attempt over the document's stored raw file,
// extracting its text first.
func (o *Orchestrator) IngestDocument(ctx context.Context, documentID uuid.UUID) error {
	doc, err := o.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := o.docs.MarkProcessing(ctx, doc.ID); err != nil {
		return err
	}

	content, err := o.extract(ctx, doc)
	if err != nil {
		o.rollback(ctx, doc, err)
		return fmt.Errorf("ingest document %s: %w", doc.ID, err)
	}

	return o.run(ctx, doc, content)
}

func (o *Orchestrator) run(ctx context.Context, doc *models.Document, content string) error {
	if err := o.process(ctx, doc, content); err != nil {
		o.rollback(ctx, doc, err)
		return fmt.Errorf("ingest document %s: %w", doc.ID, err)
	}
	slog.Info("document ingested", "document_id", doc.ID)
	return nil
}

func (o *Orchestrator) process(ctx context.Context, doc *models.Document, content string) error {
	chunks, err := o.chunker.Chunk(content, o.maxTokens)
	if err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	stored := make([]vectorstore.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = vectorstore.Chunk{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			OwnerID:     doc.OwnerID,
			ChunkIndex:  c.Index,
			TotalChunks: len(chunks),
			Content:     c.Content,
			Embedding:   vectors[i],
			TokenCount:  c.TokenCount,
		}
	}

	if err := o.store.PutChunks(ctx, doc.ID, stored); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	summary, err := o.summarizer.Summarize(ctx, doc.Title, content)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if err := o.docs.MarkCompleted(ctx, doc.ID, summary); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (o *Orchestrator) extract(ctx context.Context, doc *models.Document) (string, error) {
	reader, err := o.storage.Download(ctx, o.bucket, doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("download raw file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read raw file: %w", err)
	}

	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), doc.FileType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return extracted.Content, nil
}

// rollback undoes a failed attempt: stored chunks go, the raw file goes,
// and the document lands in error with a readable detail. Cleanup runs
// even when the triggering context is already cancelled.
func (o *Orchestrator) rollback(ctx context.Context, doc *models.Document, cause error) {
	cleanupCtx := context.WithoutCancel(ctx)

	if err := o.store.DeleteForDocument(cleanupCtx, doc.ID); err != nil {
		slog.Error("rollback: delete chunks failed", "document_id", doc.ID, "error", err)
	}
	if doc.FilePath != "" {
		if err := o.storage.Delete(cleanupCtx, o.bucket, doc.FilePath); err != nil {
			slog.Error("rollback: delete raw file failed", "document_id", doc.ID, "error", err)
		}
	}
	if err := o.docs.MarkError(cleanupCtx, doc.ID, humanMessage(cause)); err != nil {
		slog.Error("rollback: mark error failed", "document_id", doc.ID, "error", err)
	}

	slog.Warn("ingestion failed", "document_id", doc.ID, "error", cause)
}

// humanMessage renders the failure for the document's error_detail field,
// which surfaces directly to users.
func humanMessage(err error) string {
	switch {
	case errors.Is(err, embedding.ErrRateLimited):
		return "embedding service rate limit exceeded; upload the document again later"
	case errors.Is(err, embedding.ErrUnavailable):
		return "embedding service unavailable; upload the document again later"
	case errors.Is(err, embedding.ErrInvalidInput):
		return "document text was rejected by the embedding service"
	case errors.Is(err, chunker.ErrEmptyText):
		return "document contained no extractable text"
	case errors.Is(err, tokenizer.ErrEncoding):
		return "document text could not be tokenized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "ingestion was interrupted before completing"
	default:
		return err.Error()
	}
}
