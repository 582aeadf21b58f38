package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitVec returns a 2D unit vector whose cosine similarity against (1, 0)
// equals score.
func unitVec(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

var queryVec = []float32{1, 0}

func putOne(t *testing.T, s *MemoryStore, owner *uuid.UUID, score float64) uuid.UUID {
	t.Helper()
	docID := uuid.New()
	err := s.PutChunks(context.Background(), docID, []Chunk{{
		ID:          uuid.New(),
		DocumentID:  docID,
		OwnerID:     owner,
		ChunkIndex:  0,
		TotalChunks: 1,
		Content:     "chunk",
		Embedding:   unitVec(score),
		TokenCount:  1,
	}})
	require.NoError(t, err)
	return docID
}

func TestSearch_OrdersByScoreDescending(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	putOne(t, s, &owner, 0.80)
	putOne(t, s, &owner, 0.95)
	putOne(t, s, &owner, 0.90)

	results, err := s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &owner, Threshold: 0.78, MaxResults: 5,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.InDelta(t, 0.95, results[0].Score, 1e-6)
	assert.InDelta(t, 0.90, results[1].Score, 1e-6)
	assert.InDelta(t, 0.80, results[2].Score, 1e-6)
}

func TestSearch_ThresholdIsStrict(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	// An identical vector scores exactly 1.0, which a threshold of 1.0
	// must exclude.
	putOne(t, s, &owner, 1.0)

	results, err := s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &owner, Threshold: 1.0, MaxResults: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	// An orthogonal vector scores exactly 0.0 and is excluded even at
	// threshold zero.
	s2 := NewMemoryStore()
	docID := uuid.New()
	require.NoError(t, s2.PutChunks(context.Background(), docID, []Chunk{{
		ID: uuid.New(), DocumentID: docID, OwnerID: &owner,
		Content: "orthogonal", Embedding: []float32{0, 1},
	}}))
	results, err = s2.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &owner, Threshold: 0, MaxResults: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FiltersBelowThreshold(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	putOne(t, s, &owner, 0.95)
	putOne(t, s, &owner, 0.90)
	putOne(t, s, &owner, 0.70)
	putOne(t, s, &owner, 0.50)
	putOne(t, s, &owner, 0.20)

	results, err := s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &owner, Threshold: 0.78, MaxResults: 5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 0.95, results[0].Score, 1e-6)
	assert.InDelta(t, 0.90, results[1].Score, 1e-6)
}

func TestSearch_CapsAtMaxResults(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	for _, score := range []float64{0.99, 0.95, 0.90, 0.85, 0.80} {
		putOne(t, s, &owner, score)
	}

	results, err := s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &owner, Threshold: 0.5, MaxResults: 3,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.InDelta(t, 0.99, results[0].Score, 1e-6)
	assert.InDelta(t, 0.90, results[2].Score, 1e-6)
}

func TestSearch_OwnerScoping(t *testing.T) {
	s := NewMemoryStore()
	alice := uuid.New()
	bob := uuid.New()

	aliceDoc := putOne(t, s, &alice, 0.95)
	putOne(t, s, &bob, 0.95)
	sharedDoc := putOne(t, s, nil, 0.95)

	// Alice sees only her own chunks in her scope.
	results, err := s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: &alice, Threshold: 0.5, MaxResults: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, aliceDoc, results[0].DocumentID)

	// The shared scope returns only owner-less chunks.
	results, err = s.Search(context.Background(), queryVec, SearchOptions{
		OwnerID: nil, Threshold: 0.5, MaxResults: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sharedDoc, results[0].DocumentID)
}

func TestSearch_InvalidOptions(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Search(context.Background(), queryVec, SearchOptions{Threshold: 1.5, MaxResults: 5})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = s.Search(context.Background(), queryVec, SearchOptions{Threshold: 0.5, MaxResults: 0})
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestPutChunks_ReplacesExisting(t *testing.T) {
	s := NewMemoryStore()
	docID := uuid.New()
	owner := uuid.New()

	chunk := func(idx int) Chunk {
		return Chunk{
			ID: uuid.New(), DocumentID: docID, OwnerID: &owner,
			ChunkIndex: idx, Content: "c", Embedding: unitVec(0.9),
		}
	}

	require.NoError(t, s.PutChunks(context.Background(), docID, []Chunk{chunk(0), chunk(1), chunk(2)}))
	require.NoError(t, s.PutChunks(context.Background(), docID, []Chunk{chunk(0)}))

	assert.Len(t, s.ChunksForDocument(docID), 1, "re-ingestion must replace, not append")
}

func TestPutChunks_MidBatchFailureCommitsNothing(t *testing.T) {
	s := NewMemoryStore()
	docID := uuid.New()

	boom := errors.New("boom")
	calls := 0
	s.putHook = func(Chunk) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}

	err := s.PutChunks(context.Background(), docID, []Chunk{
		{ID: uuid.New(), DocumentID: docID, Embedding: unitVec(0.9)},
		{ID: uuid.New(), DocumentID: docID, Embedding: unitVec(0.9)},
		{ID: uuid.New(), DocumentID: docID, Embedding: unitVec(0.9)},
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.ChunksForDocument(docID), "partial batches must not be visible")
}

func TestDeleteForDocument(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	docID := putOne(t, s, &owner, 0.9)
	require.NoError(t, s.DeleteForDocument(context.Background(), docID))
	assert.Empty(t, s.ChunksForDocument(docID))
}

func TestSearch_EqualScoresKeepInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	owner := uuid.New()

	first := putOne(t, s, &owner, 0.9)
	second := putOne(t, s, &owner, 0.9)

	for i := 0; i < 200; i++ {
		results, err := s.Search(context.Background(), queryVec, SearchOptions{
			OwnerID: &owner, Threshold: 0.5, MaxResults: 5,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, first, results[0].DocumentID, "equal scores must keep insertion order")
		assert.Equal(t, second, results[1].DocumentID)
	}
}

func TestCosineSimilarity_DimensionMismatchScoresZero(t *testing.T) {
	assert.Zero(t, cosineSimilarity([]float32{1, 0, 0}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
}
