package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Stdin", func(t *testing.T) {
		src, err := Load("", false, strings.NewReader("from stdin\n"))
		require.NoError(t, err)
		assert.Equal(t, Source{Text: "from stdin\n"}, src)
	})

	t.Run("No stdin", func(t *testing.T) {
		_, err := Load("", false, nil)
		assert.Error(t, err)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("John Smith"), 0o644))
		src, err := Load(path, false, nil)
		require.NoError(t, err)
		assert.Equal(t, "John Smith", src.Text)
		assert.False(t, src.URI)
	})

	t.Run("Directory is literal text", func(t *testing.T) {
		dir := t.TempDir()
		src, err := Load(dir, false, nil)
		require.NoError(t, err)
		assert.Equal(t, dir, src.Text)
	})

	t.Run("Literal text", func(t *testing.T) {
		src, err := Load("John Smith is accused.", false, nil)
		require.NoError(t, err)
		assert.Equal(t, "John Smith is accused.", src.Text)
	})

	t.Run("URI", func(t *testing.T) {
		src, err := Load("https://example.com/wiki/Zürich", true, nil)
		require.NoError(t, err)
		assert.True(t, src.URI)
		assert.Equal(t, "https://example.com/wiki/Z%C3%BCrich", src.Text)
	})

	t.Run("Empty URI", func(t *testing.T) {
		_, err := Load(" ", true, nil)
		assert.Error(t, err)
	})

	t.Run("Stdin error", func(t *testing.T) {
		_, err := Load("", false, failingReader{})
		assert.Error(t, err)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestEscapeURI(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a_b-c.d~e":        "https://example.com/a_b-c.d~e",
		"https://example.com/Z%C3%BCrich":      "https://example.com/Z%C3%BCrich",
		"https://example.com/Zürich":           "https://example.com/Z%C3%BCrich",
		"https://example.com/a b":              "https://example.com/a%20b",
		"https://example.com/a%20b":            "https://example.com/a%20b",
		"https://example.com/q?x=1&y=2":        "https://example.com/q%3Fx%3D1%26y%3D2",
		"https://example.com/100%":             "https://example.com/100%25",
		"https://ja.wikipedia.org/wiki/東京": "https://ja.wikipedia.org/wiki/%E6%9D%B1%E4%BA%AC",
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeURI(in), in)
	}
}
