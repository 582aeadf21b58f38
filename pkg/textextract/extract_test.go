package textextract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	data := []byte("  Veteran benefits overview.\nSecond line.  ")

	for _, ft := range []string{".txt", "txt", "text/plain"} {
		got, err := Extract(bytes.NewReader(data), int64(len(data)), ft)
		require.NoError(t, err, ft)
		assert.Equal(t, "Veteran benefits overview.\nSecond line.", got.Content)
		assert.Equal(t, 1, got.Pages)
		assert.Equal(t, "txt", got.Metadata["type"])
	}
}

func TestExtract_Markdown(t *testing.T) {
	data := []byte("# Title\n\nBody text.")

	got, err := Extract(bytes.NewReader(data), int64(len(data)), ".md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody text.", got.Content)
	assert.Equal(t, "md", got.Metadata["type"])
}

func TestExtract_UnsupportedType(t *testing.T) {
	data := []byte("irrelevant")

	_, err := Extract(bytes.NewReader(data), int64(len(data)), ".exe")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestSupportedTypes(t *testing.T) {
	types := SupportedTypes()
	assert.Contains(t, types, ".pdf")
	assert.Contains(t, types, ".docx")
	assert.Contains(t, types, ".txt")
	assert.Contains(t, types, ".md")
}

func TestStripXMLTags(t *testing.T) {
	got := stripXMLTags(`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>`)
	assert.Equal(t, "Hello world", got)
}
