package autorag

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"vectorize/apps/worker/internal/text"
)

// ReadText extracts plain text from a content file. Unknown extensions yield "".
func ReadText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".txt", ".html", ".ipynb":
	default:
		return "", nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch ext {
	case ".html":
		return text.StripHTML(toValidUTF8(raw)), nil
	case ".ipynb":
		return text.NotebookText(raw), nil
	default:
		return toValidUTF8(raw), nil
	}
}

// toValidUTF8 drops undecodable bytes.
func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "")
}
