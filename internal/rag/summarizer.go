package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/vetassist/docpipeline/internal/llm"
)

// maxSummaryInputChars bounds how much of a document is sent to the model
// for summarization; anything past it adds cost without changing the
// summary much.
const maxSummaryInputChars = 24000

// Summarizer produces a whole-document summary through the LLM gateway.
type Summarizer struct {
	gateway llm.Gateway
	model   string
}

func NewSummarizer(gw llm.Gateway, model string) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{gateway: gw, model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	input := content
	if len(input) > maxSummaryInputChars {
		input = input[:maxSummaryInputChars]
	}

	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Model: s.model,
		Messages: []llm.Message{
			{
				Role: "system",
				Content: `Summarize the document into a concise paragraph.
Capture what the document is, who it concerns, key dates and amounts, and
any decisions or conclusions it contains. The summary will be shown
alongside retrieved excerpts in later prompts.`,
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Document title: %s\n\n%s", title, input),
			},
		},
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("summarize document: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}
