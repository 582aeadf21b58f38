package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vetassist/docpipeline/pkg/tokenizer"
)

var (
	ErrEmptyText    = errors.New("chunker: text must not be empty")
	ErrInvalidLimit = errors.New("chunker: max tokens per chunk must be positive")
)

// DefaultMaxTokens keeps chunks safely under the embedding model's context
// limit while staying fine-grained enough for retrieval precision.
const DefaultMaxTokens = 512

// Chunk is one token-bounded slice of a document's text.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
}

// Chunker splits text into contiguous token windows using a codec, so that
// the windows concatenate token-for-token back to the original sequence.
type Chunker struct {
	codec tokenizer.Codec
}

func New(codec tokenizer.Codec) *Chunker {
	return &Chunker{codec: codec}
}

// Chunk partitions text into windows of at most maxTokens tokens. The last
// window may be shorter. Chunk count is ceil(tokenCount / maxTokens), and
// each chunk's content is the decoded window with surrounding whitespace
// trimmed.
func (c *Chunker) Chunk(text string, maxTokens int) ([]Chunk, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if maxTokens <= 0 {
		return nil, ErrInvalidLimit
	}

	tokens, err := c.codec.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	chunks := make([]Chunk, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		window := tokens[start:end]
		content, err := c.codec.Decode(window)
		if err != nil {
			return nil, fmt.Errorf("decode window %d: %w", len(chunks), err)
		}

		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			// A window of pure whitespace still counts toward the
			// partition; keep it verbatim rather than emitting an
			// empty chunk.
			trimmed = content
		}

		chunks = append(chunks, Chunk{
			Content:    trimmed,
			Index:      len(chunks),
			TokenCount: len(window),
		})
	}

	return chunks, nil
}
