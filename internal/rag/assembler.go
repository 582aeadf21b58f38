package rag

import (
	"fmt"
	"strings"

	"github.com/vetassist/docpipeline/internal/vectorstore"
)

// DocumentSummary is a whole-document summary available for prompting.
type DocumentSummary struct {
	Title   string
	Summary string
}

// AssembleContext builds the prompt context block: retrieved excerpts in
// score-descending order, then document summaries, each under a section
// label so the downstream prompt can tell raw excerpts from prior
// analysis.
//
// The maxChars budget is enforced by dropping whole items from the
// low-priority end: summaries go first (last summary dropped first), then
// the lowest-scoring excerpts. No item is ever cut mid-string. The output
// is deterministic for identical inputs.
func AssembleContext(results []vectorstore.SearchResult, summaries []DocumentSummary, maxChars int) string {
	items := make([]string, 0, len(results)+len(summaries))
	for i, r := range results {
		items = append(items, fmt.Sprintf("[Excerpt %d] (score %.2f)\n%s\n\n", i+1, r.Score, r.Content))
	}
	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "untitled"
		}
		items = append(items, fmt.Sprintf("[Document summary: %s]\n%s\n\n", title, s.Summary))
	}

	total := 0
	kept := 0
	for _, item := range items {
		if maxChars > 0 && total+len(item) > maxChars {
			break
		}
		total += len(item)
		kept++
	}

	var sb strings.Builder
	sb.Grow(total)
	for _, item := range items[:kept] {
		sb.WriteString(item)
	}
	return strings.TrimRight(sb.String(), "\n")
}
