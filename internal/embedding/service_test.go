package embedding

import (
	"context"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetassist/docpipeline/internal/llm"
)

type fakeGateway struct {
	embedErr error
	calls    int
	inputs   [][]string
}

func (f *fakeGateway) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	panic("not used")
}

func (f *fakeGateway) Provider(string) (llm.Provider, error) {
	panic("not used")
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.calls++
	f.inputs = append(f.inputs, req.Input)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func TestEmbed_OneVectorPerText(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "")

	vecs, err := svc.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.Equal(t, 1, gw.calls)
}

func TestEmbed_EmptyInputSlice(t *testing.T) {
	svc := NewService(&fakeGateway{}, "")

	vecs, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed_RejectsEmptyText(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "")

	_, err := svc.Embed(context.Background(), []string{"ok", "", "ok"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, gw.calls, "no API call for invalid input")
}

func TestEmbed_BatchesLargeInputs(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "")

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "t"
	}

	vecs, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, 250)
	require.Equal(t, 3, gw.calls)
	assert.Len(t, gw.inputs[0], 100)
	assert.Len(t, gw.inputs[1], 100)
	assert.Len(t, gw.inputs[2], 50)
}

func TestEmbed_ClassifiesProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusBadGateway, ErrUnavailable},
		{"bad request", http.StatusBadRequest, ErrInvalidInput},
		{"bad api key", http.StatusUnauthorized, ErrUnavailable},
		{"forbidden", http.StatusForbidden, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{embedErr: &openai.APIError{HTTPStatusCode: tt.status}}
			svc := NewService(gw, "")

			_, err := svc.Embed(context.Background(), []string{"text"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbedSingle(t *testing.T) {
	svc := NewService(&fakeGateway{}, "")

	vec, err := svc.EmbedSingle(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}
