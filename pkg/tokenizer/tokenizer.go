package tokenizer

import (
	"errors"
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// ErrEncoding is returned when input contains content the codec cannot
// tokenize (in practice, invalid UTF-8).
var ErrEncoding = errors.New("tokenizer: content cannot be encoded")

// Codec encodes text into a token sequence and decodes token windows back
// to text. Decoding any contiguous slice of an encoded sequence and
// concatenating the results reproduces the original text.
type Codec interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
}

// CountTokens returns the token length of text under the given codec.
func CountTokens(c Codec, text string) (int, error) {
	toks, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(toks), nil
}

// tiktokenCodec wraps a tiktoken BPE encoding. cl100k_base is the family
// used by the text-embedding-3 models, so chunk boundaries measured with
// it line up with what the embedding API actually counts.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewCL100K returns a codec backed by the cl100k_base encoding.
func NewCL100K() (Codec, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (c *tiktokenCodec) Encode(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, ErrEncoding
	}
	return c.enc.Encode(text, nil, nil), nil
}

func (c *tiktokenCodec) Decode(tokens []int) (string, error) {
	return c.enc.Decode(tokens), nil
}

// WordCodec is a deterministic whitespace-aware codec with no external
// vocabulary. Each token is a maximal run of non-space characters together
// with the whitespace that follows it, so decode is exact concatenation.
// It exists for offline use and tests; production chunking uses NewCL100K.
type WordCodec struct {
	mu    sync.Mutex
	vocab map[string]int
	words []string
}

func NewWordCodec() *WordCodec {
	return &WordCodec{vocab: make(map[string]int)}
}

func (c *WordCodec) Encode(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, ErrEncoding
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var tokens []int
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		// A token ends where a whitespace run gives way to a new word.
		if inSpace && !isSpace {
			tokens = append(tokens, c.intern(text[start:i]))
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		tokens = append(tokens, c.intern(text[start:]))
	}
	return tokens, nil
}

func (c *WordCodec) Decode(tokens []int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []byte
	for _, t := range tokens {
		if t < 0 || t >= len(c.words) {
			return "", fmt.Errorf("%w: unknown token %d", ErrEncoding, t)
		}
		out = append(out, c.words[t]...)
	}
	return string(out), nil
}

func (c *WordCodec) intern(w string) int {
	if id, ok := c.vocab[w]; ok {
		return id
	}
	id := len(c.words)
	c.vocab[w] = id
	c.words = append(c.words, w)
	return id
}
