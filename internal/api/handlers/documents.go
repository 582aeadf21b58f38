package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetassist/docpipeline/internal/auth"
	"github.com/vetassist/docpipeline/internal/ingest"
	"github.com/vetassist/docpipeline/internal/models"
	"github.com/vetassist/docpipeline/internal/queue"
	"github.com/vetassist/docpipeline/pkg/textextract"
)

type DocumentHandler struct {
	svc   *ingest.Service
	queue *queue.Client
}

func NewDocumentHandler(svc *ingest.Service, qc *queue.Client) *DocumentHandler {
	return &DocumentHandler{svc: svc, queue: qc}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	fileType := filepath.Ext(header.Filename)
	if fileType == "" {
		fileType = header.Header.Get("Content-Type")
	}
	if !supportedType(fileType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported file type: " + fileType})
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	ownerID := auth.OwnerFromContext(r.Context())
	owner := &ownerID
	// The shared knowledge base holds documents visible to every user.
	if r.FormValue("shared") == "true" {
		owner = nil
	}

	doc, err := h.svc.Upload(r.Context(), ingest.UploadRequest{
		OwnerID:  owner,
		Title:    title,
		FileType: fileType,
		FileSize: header.Size,
		Data:     file,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{DocumentID: doc.ID.String()}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to schedule ingestion: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	ownerID := auth.OwnerFromContext(r.Context())
	owner := &ownerID
	if r.URL.Query().Get("shared") == "true" {
		owner = nil
	}

	docs, err := h.svc.ListForOwner(r.Context(), owner, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), doc.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	resp := map[string]string{"id": doc.ID.String(), "status": doc.Status}
	if doc.ErrorDetail != nil {
		resp["error_detail"] = *doc.ErrorDetail
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reanalyze re-triggers ingestion for a document whose previous attempt
// failed. Documents mid-processing are rejected by the worker's status
// transition, so scheduling here is safe.
func (h *DocumentHandler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	if doc.Status == models.DocStatusProcessing {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "document is already being processed"})
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{DocumentID: doc.ID.String()}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": doc.ID.String(), "status": "scheduled"})
}

// fetchOwned loads the document from the URL and enforces that the caller
// owns it or that it lives in the shared knowledge base.
func (h *DocumentHandler) fetchOwned(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return nil, false
	}

	doc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return nil, false
	}

	ownerID := auth.OwnerFromContext(r.Context())
	if doc.OwnerID != nil && *doc.OwnerID != ownerID {
		// Same response as a missing document, to avoid leaking IDs.
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return nil, false
	}

	return doc, true
}

func supportedType(fileType string) bool {
	for _, t := range textextract.SupportedTypes() {
		if t == fileType {
			return true
		}
	}
	return false
}
