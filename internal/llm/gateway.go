package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vetassist/docpipeline/internal/config"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	fallbackProvider string
	maxRetries       int
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  cfg.DefaultProvider,
		fallbackProvider: cfg.FallbackProvider,
		maxRetries:       cfg.MaxRetries,
	}

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}

	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := retry(ctx, g.maxRetries, providerName, func() (*ChatResponse, error) {
		p, perr := g.Provider(providerName)
		if perr != nil {
			return nil, perr
		}
		return p.ChatCompletion(ctx, req)
	})
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		return retry(ctx, g.maxRetries, g.fallbackProvider, func() (*ChatResponse, error) {
			p, perr := g.Provider(g.fallbackProvider)
			if perr != nil {
				return nil, perr
			}
			return p.ChatCompletion(ctx, req)
		})
	}
	return resp, err
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	return retry(ctx, g.maxRetries, providerName, func() (*EmbeddingResponse, error) {
		p, perr := g.Provider(providerName)
		if perr != nil {
			return nil, perr
		}
		return p.GenerateEmbedding(ctx, req)
	})
}

// retry runs call up to maxRetries+1 times with quadratic backoff, stopping
// early on errors that a retry cannot fix (bad input, bad auth).
func retry[T any](ctx context.Context, maxRetries int, providerName string, call func() (*T, error)) (*T, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying provider call", "provider", providerName, "attempt", attempt)
		}

		resp, err := call()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", providerName, lastErr)
}

// Retryable reports whether err is a transient provider failure worth
// retrying: rate limits, 5xx responses, or transport errors. Client errors
// (invalid input, auth) are terminal.
func Retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			return false
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	// Unclassified errors are treated as transport-level hiccups.
	return true
}
