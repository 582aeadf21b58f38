package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vetassist/docpipeline/internal/llm"
)

// Typed failures of the embedding boundary. ErrRateLimited and
// ErrUnavailable are transient; ErrInvalidInput means the caller must
// change the input (empty text, or text beyond the model's limit).
var (
	ErrRateLimited  = errors.New("embedding: rate limited")
	ErrUnavailable  = errors.New("embedding: service unavailable")
	ErrInvalidInput = errors.New("embedding: invalid input")
)

// Dimensions is the vector width produced by text-embedding-3-small.
const Dimensions = 1536

type Service struct {
	gateway llm.Gateway
	model   string
}

func NewService(gw llm.Gateway, model string) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{gateway: gw, model: model}
}

// Embed returns one vector per input text, batching requests to stay under
// the API's per-call input limit.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}

	const batchSize = 100
	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Provider: "openai",
			Model:    s.model,
			Input:    batch,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, classify(err))
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUnavailable, len(resp.Embeddings), len(batch))
		}

		allEmbeddings = append(allEmbeddings, resp.Embeddings...)
	}

	return allEmbeddings, nil
}

// EmbedSingle embeds one text, used for query vectors.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrUnavailable)
	}
	return embeddings[0], nil
}

// classify maps a provider error onto the service's typed failures so the
// orchestrator can decide between "caller must change input" and
// "retryable hiccup" without knowing which SDK produced it.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			// Bad credentials are an operator problem, not bad input.
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case apiErr.HTTPStatusCode >= 400:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
