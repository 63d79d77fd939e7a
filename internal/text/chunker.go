package text

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
)

const (
	DefaultChunkSize    = 1400
	DefaultChunkOverlap = 200
)

var (
	// Unicode whitespace, including NBSP and the separators \s leaves out.
	whitespaceRe = regexp.MustCompile(`[\s\x0b\x1c-\x1f\x{85}\p{Z}]+`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
)

// Collapse folds every whitespace run into a single space and trims the ends.
func Collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Chunk splits text into windows of at most size characters, each starting
// overlap characters before the previous one ended. Whitespace is collapsed
// first; blank input yields no chunks.
func Chunk(s string, size, overlap int) []string {
	cleaned := []rune(Collapse(s))
	if len(cleaned) == 0 {
		return nil
	}
	if size <= 0 || len(cleaned) <= size {
		return []string{string(cleaned)}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(cleaned) {
		end := start + size
		if end > len(cleaned) {
			end = len(cleaned)
		}
		chunks = append(chunks, string(cleaned[start:end]))
		if end == len(cleaned) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// StripHTML drops tags and decodes entities. Tags become spaces so adjacent
// words stay apart.
func StripHTML(raw string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(raw, " "))
}

type notebook struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
}

// NotebookText concatenates the markdown and code cells of a Jupyter
// notebook. Malformed notebooks yield an empty string.
func NotebookText(raw []byte) string {
	var nb notebook
	if err := json.Unmarshal(raw, &nb); err != nil {
		return ""
	}

	var parts []string
	for _, cell := range nb.Cells {
		if cell.CellType != "markdown" && cell.CellType != "code" {
			continue
		}
		parts = append(parts, cellSource(cell.Source))
	}
	return strings.Join(parts, "\n")
}

// cellSource accepts both the list-of-lines and single-string encodings.
func cellSource(raw json.RawMessage) string {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
