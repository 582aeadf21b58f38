package rag

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetassist/docpipeline/internal/vectorstore"
)

type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return f.vec, nil
}

type staticSummaries struct {
	byScope map[string][]DocumentSummary
}

func (s *staticSummaries) CompletedSummaries(_ context.Context, ownerID *uuid.UUID, _ int) ([]DocumentSummary, error) {
	key := "shared"
	if ownerID != nil {
		key = ownerID.String()
	}
	return s.byScope[key], nil
}

func unit(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

func seedChunk(t *testing.T, store *vectorstore.MemoryStore, owner *uuid.UUID, content string, score float64) {
	t.Helper()
	docID := uuid.New()
	require.NoError(t, store.PutChunks(context.Background(), docID, []vectorstore.Chunk{{
		ID: uuid.New(), DocumentID: docID, OwnerID: owner,
		Content: content, Embedding: unit(score), TokenCount: 1, TotalChunks: 1,
	}}))
}

func newTestPipeline(store *vectorstore.MemoryStore, sums SummarySource) Pipeline {
	return NewPipeline(store, &fixedEmbedder{vec: []float32{1, 0}}, sums, nil, Options{
		Threshold:       0.78,
		MaxResults:      5,
		MaxContextChars: 12000,
	})
}

func TestContext_FiltersAndRanks(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()

	seedChunk(t, store, &owner, "strong match", 0.95)
	seedChunk(t, store, &owner, "good match", 0.90)
	seedChunk(t, store, &owner, "weak match", 0.50)

	p := newTestPipeline(store, nil)

	resp, err := p.Context(context.Background(), ContextRequest{Query: "what is my rating", OwnerID: owner})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Results)
	assert.False(t, resp.Cached)
	assert.Contains(t, resp.Context, "strong match")
	assert.Contains(t, resp.Context, "good match")
	assert.NotContains(t, resp.Context, "weak match")

	// Highest score leads the context.
	assert.Less(t,
		indexOf(resp.Context, "strong match"),
		indexOf(resp.Context, "good match"))
}

func TestContext_MergesSharedKnowledgeBase(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()

	seedChunk(t, store, &owner, "personal document", 0.90)
	seedChunk(t, store, nil, "shared handbook", 0.95)

	p := newTestPipeline(store, nil)

	resp, err := p.Context(context.Background(), ContextRequest{Query: "benefits", OwnerID: owner})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Results)
	assert.Contains(t, resp.Context, "personal document")
	assert.Contains(t, resp.Context, "shared handbook")
	// The shared chunk outscores the personal one here.
	assert.Less(t,
		indexOf(resp.Context, "shared handbook"),
		indexOf(resp.Context, "personal document"))
}

func TestContext_OtherUsersInvisible(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()
	other := uuid.New()

	seedChunk(t, store, &other, "someone else's record", 0.99)

	p := newTestPipeline(store, nil)

	resp, err := p.Context(context.Background(), ContextRequest{Query: "records", OwnerID: owner})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Results)
	assert.NotContains(t, resp.Context, "someone else's record")
}

func TestContext_IncludesSummaries(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()
	seedChunk(t, store, &owner, "excerpt body", 0.90)

	sums := &staticSummaries{byScope: map[string][]DocumentSummary{
		owner.String(): {{Title: "My claim file", Summary: "Personal summary."}},
		"shared":       {{Title: "Benefits handbook", Summary: "Shared summary."}},
	}}

	p := newTestPipeline(store, sums)

	resp, err := p.Context(context.Background(), ContextRequest{Query: "claim", OwnerID: owner})
	require.NoError(t, err)
	assert.Contains(t, resp.Context, "[Document summary: My claim file]")
	assert.Contains(t, resp.Context, "[Document summary: Benefits handbook]")
}

func TestContext_EmptyQuery(t *testing.T) {
	p := newTestPipeline(vectorstore.NewMemoryStore(), nil)

	_, err := p.Context(context.Background(), ContextRequest{Query: "", OwnerID: uuid.New()})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_DefaultsFromOptions(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()
	seedChunk(t, store, &owner, "match", 0.90)
	seedChunk(t, store, &owner, "below threshold", 0.50)

	p := newTestPipeline(store, nil)

	results, err := p.Search(context.Background(), SearchRequest{Query: "anything", OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "match", results[0].Content)
}

func TestSearch_ExplicitKnobs(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()
	seedChunk(t, store, &owner, "a", 0.95)
	seedChunk(t, store, &owner, "b", 0.90)
	seedChunk(t, store, &owner, "c", 0.85)

	p := newTestPipeline(store, nil)

	threshold := 0.3
	results, err := p.Search(context.Background(), SearchRequest{
		Query: "q", OwnerID: &owner, Threshold: &threshold, MaxResults: 2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_ZeroThresholdIsNotTheDefault(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	owner := uuid.New()
	seedChunk(t, store, &owner, "weak match", 0.10)

	p := newTestPipeline(store, nil)

	threshold := 0.0
	results, err := p.Search(context.Background(), SearchRequest{
		Query: "q", OwnerID: &owner, Threshold: &threshold, MaxResults: 5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "an explicit zero threshold must not fall back to the configured default")
	assert.Equal(t, "weak match", results[0].Content)
}

func indexOf(s, sub string) int {
	return strings.Index(s, sub)
}
