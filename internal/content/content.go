// Package content acquires the document to mask: a file, standard input, a
// literal string, or a URI the extraction service fetches itself.
package content

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Source is a loaded document, either inline text or a URI.
type Source struct {
	Text string
	URI  bool
}

// Load resolves input into a Source.
//
//   - uri: input is a URI and is percent-escaped for the extraction service
//   - input empty: the document is read from stdin
//   - input names a regular file: the file is read
//   - otherwise input itself is the document
func Load(input string, uri bool, stdin io.Reader) (Source, error) {
	if uri {
		if strings.TrimSpace(input) == "" {
			return Source{}, errors.New("content: empty URI")
		}
		return Source{Text: EscapeURI(input), URI: true}, nil
	}

	if input == "" {
		if stdin == nil {
			return Source{}, errors.New("content: no input and no stdin")
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return Source{}, fmt.Errorf("content: read stdin: %w", err)
		}
		return Source{Text: string(b)}, nil
	}

	if info, err := os.Stat(input); err == nil && info.Mode().IsRegular() {
		b, err := os.ReadFile(input)
		if err != nil {
			return Source{}, fmt.Errorf("content: read %s: %w", input, err)
		}
		return Source{Text: string(b)}, nil
	}
	return Source{Text: input}, nil
}

// EscapeURI percent-escapes raw so that non-Latin characters survive the
// extraction service. Existing escapes are decoded first so they are not
// doubled; only unreserved characters, '/' and ':' are kept literally.
func EscapeURI(raw string) string {
	unquoted, err := url.PathUnescape(raw)
	if err != nil {
		unquoted = raw
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(unquoted))
	for i := 0; i < len(unquoted); i++ {
		c := unquoted[i]
		if keepLiteral(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func keepLiteral(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '/', ':':
		return true
	}
	return false
}
