package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vetassist/docpipeline/internal/vectorstore"
)

// Embedder produces a query vector from free text.
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	store    vectorstore.Store
	embedder Embedder
}

func NewRetriever(store vectorstore.Store, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// RetrieveOptions scopes one retrieval. A nil OwnerID searches the shared
// knowledge base.
type RetrieveOptions struct {
	OwnerID    *uuid.UUID
	Threshold  float64
	MaxResults int
}

// Retrieve embeds the query and ranks the owner's chunks against it.
// An empty result set is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]vectorstore.SearchResult, error) {
	queryVec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return r.store.Search(ctx, queryVec, vectorstore.SearchOptions{
		OwnerID:    opts.OwnerID,
		Threshold:  opts.Threshold,
		MaxResults: opts.MaxResults,
	})
}
