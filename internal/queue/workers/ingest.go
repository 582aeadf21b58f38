package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/vetassist/docpipeline/internal/ingest"
	"github.com/vetassist/docpipeline/internal/queue"
)

type IngestWorker struct {
	orch *ingest.Orchestrator
}

func NewIngestWorker(orch *ingest.Orchestrator) *IngestWorker {
	return &IngestWorker{orch: orch}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	slog.Info("ingesting document", "document_id", docID)

	if err := w.orch.IngestDocument(ctx, docID); err != nil {
		if errors.Is(err, ingest.ErrAlreadyProcessing) {
			// Another worker holds this document; drop the task.
			slog.Warn("document already being processed", "document_id", docID)
			return nil
		}
		// The orchestrator already recorded the failure on the document;
		// returning the error here only surfaces it in worker logs.
		return err
	}

	return nil
}
