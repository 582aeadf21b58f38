package rag

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vetassist/docpipeline/internal/cache"
	"github.com/vetassist/docpipeline/internal/vectorstore"
)

// ErrEmptyQuery is returned when the query text is blank.
var ErrEmptyQuery = errors.New("rag: query must not be empty")

// Pipeline is the query-time entry point: embed the question, rank the
// caller's chunks and the shared knowledge base against it, and assemble a
// bounded context block for the downstream completion call.
type Pipeline interface {
	Context(ctx context.Context, req ContextRequest) (*ContextResponse, error)
	Search(ctx context.Context, req SearchRequest) ([]vectorstore.SearchResult, error)
}

// SummarySource lists completed whole-document summaries for a scope.
type SummarySource interface {
	CompletedSummaries(ctx context.Context, ownerID *uuid.UUID, limit int) ([]DocumentSummary, error)
}

type ContextRequest struct {
	Query   string
	OwnerID uuid.UUID
}

type ContextResponse struct {
	Context string `json:"context"`
	Results int    `json:"results"`
	Cached  bool   `json:"cached"`
}

type SearchRequest struct {
	Query      string
	OwnerID    *uuid.UUID // nil searches the shared knowledge base
	Threshold  *float64   // nil uses the configured default; 0 is a valid value
	MaxResults int
}

// Options carries the retrieval knobs from configuration.
type Options struct {
	Threshold       float64
	MaxResults      int
	MaxContextChars int
	CacheTTL        time.Duration
}

const maxSummariesPerScope = 10

type pipeline struct {
	retriever *Retriever
	summaries SummarySource
	cache     *cache.Cache // nil disables context caching
	opts      Options
}

func NewPipeline(store vectorstore.Store, embedder Embedder, summaries SummarySource, c *cache.Cache, opts Options) Pipeline {
	return &pipeline{
		retriever: NewRetriever(store, embedder),
		summaries: summaries,
		cache:     c,
		opts:      opts,
	}
}

func (p *pipeline) Context(ctx context.Context, req ContextRequest) (*ContextResponse, error) {
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	key := p.cacheKey(req)
	if p.cache != nil {
		var cached ContextResponse
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		}
	}

	// User-scoped retrieval first, then the shared knowledge base; user
	// matches outrank global ones at equal score.
	userResults, err := p.retriever.Retrieve(ctx, req.Query, RetrieveOptions{
		OwnerID:    &req.OwnerID,
		Threshold:  p.opts.Threshold,
		MaxResults: p.opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve user scope: %w", err)
	}

	globalResults, err := p.retriever.Retrieve(ctx, req.Query, RetrieveOptions{
		OwnerID:    nil,
		Threshold:  p.opts.Threshold,
		MaxResults: p.opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve global scope: %w", err)
	}

	results := append(userResults, globalResults...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > p.opts.MaxResults {
		results = results[:p.opts.MaxResults]
	}

	var summaries []DocumentSummary
	if p.summaries != nil {
		userSums, err := p.summaries.CompletedSummaries(ctx, &req.OwnerID, maxSummariesPerScope)
		if err != nil {
			return nil, fmt.Errorf("list summaries: %w", err)
		}
		globalSums, err := p.summaries.CompletedSummaries(ctx, nil, maxSummariesPerScope)
		if err != nil {
			return nil, fmt.Errorf("list global summaries: %w", err)
		}
		summaries = append(userSums, globalSums...)
	}

	resp := &ContextResponse{
		Context: AssembleContext(results, summaries, p.opts.MaxContextChars),
		Results: len(results),
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, resp, p.opts.CacheTTL); err != nil {
			slog.Warn("context cache write failed", "error", err)
		}
	}

	return resp, nil
}

func (p *pipeline) Search(ctx context.Context, req SearchRequest) ([]vectorstore.SearchResult, error) {
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	threshold := p.opts.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = p.opts.MaxResults
	}

	return p.retriever.Retrieve(ctx, req.Query, RetrieveOptions{
		OwnerID:    req.OwnerID,
		Threshold:  threshold,
		MaxResults: maxResults,
	})
}

// cacheKey buckets by time so cached contexts expire even if documents
// change under them; the bucket width doubles as the staleness bound.
func (p *pipeline) cacheKey(req ContextRequest) string {
	bucket := int64(0)
	if p.opts.CacheTTL > 0 {
		bucket = time.Now().Unix() / int64(p.opts.CacheTTL.Seconds())
	}
	return fmt.Sprintf("rag:ctx:%s:%d:%x", req.OwnerID, bucket, sha256.Sum256([]byte(req.Query)))
}
