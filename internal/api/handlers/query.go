package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vetassist/docpipeline/internal/auth"
	"github.com/vetassist/docpipeline/internal/chat"
	"github.com/vetassist/docpipeline/internal/rag"
)

type QueryHandler struct {
	pipeline rag.Pipeline
}

func NewQueryHandler(p rag.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: p}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Mode    chat.Mode `json:"mode"`
	Prompt  string    `json:"system_prompt"`
	Context string    `json:"context"`
	Results int       `json:"results"`
	Cached  bool      `json:"cached"`
}

// Query assembles the retrieval context for a user message and classifies
// its conversation mode, ready to hand to a chat completion.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ownerID := auth.OwnerFromContext(r.Context())

	resp, err := h.pipeline.Context(r.Context(), rag.ContextRequest{
		Query:   req.Query,
		OwnerID: ownerID,
	})
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query must not be empty"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	mode := chat.Detect(req.Query)

	writeJSON(w, http.StatusOK, queryResponse{
		Mode:    mode,
		Prompt:  chat.SystemPrompt(mode),
		Context: resp.Context,
		Results: resp.Results,
		Cached:  resp.Cached,
	})
}

type searchRequest struct {
	Query      string   `json:"query"`
	Threshold  *float64 `json:"threshold,omitempty"` // absent means the configured default
	MaxResults int      `json:"max_results,omitempty"`
	Shared     bool     `json:"shared,omitempty"`
}

// Search exposes raw similarity search over the caller's chunks, mainly
// for debugging retrieval quality.
func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ownerID := auth.OwnerFromContext(r.Context())
	owner := &ownerID
	if req.Shared {
		owner = nil
	}

	results, err := h.pipeline.Search(r.Context(), rag.SearchRequest{
		Query:      req.Query,
		OwnerID:    owner,
		Threshold:  req.Threshold,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query must not be empty"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}
