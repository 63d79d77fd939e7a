package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b c", Collapse("  a\n\n b\t\tc  "))
	assert.Equal(t, "", Collapse(" \n\t "))
}

func TestCollapse_UnicodeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c d e", Collapse("a\u00a0b\u2003c\v\u2028d\u0085e"))
	assert.Equal(t, "", Collapse("\u00a0\u3000"))
}

func TestStripHTML_NBSP(t *testing.T) {
	assert.Equal(t, "Verse 1", Collapse(StripHTML(`<p>Verse&nbsp;&nbsp;1</p>`)))
}

func TestChunk(t *testing.T) {
	t.Run("Blank", func(t *testing.T) {
		assert.Empty(t, Chunk("   \n ", 10, 2))
	})

	t.Run("Short Text Single Chunk", func(t *testing.T) {
		assert.Equal(t, []string{"hello world"}, Chunk("hello\n  world", 100, 10))
	})

	t.Run("Exact Size", func(t *testing.T) {
		assert.Equal(t, []string{"abcde"}, Chunk("abcde", 5, 2))
	})

	t.Run("Overlapping Windows", func(t *testing.T) {
		chunks := Chunk("abcdefghij", 4, 1)
		assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)
	})

	t.Run("Last Window Short", func(t *testing.T) {
		chunks := Chunk("abcdefghijk", 4, 1)
		assert.Equal(t, []string{"abcd", "defg", "ghij", "jk"}, chunks)
	})

	t.Run("Default Sizes", func(t *testing.T) {
		text := strings.Repeat("x", 3000)
		chunks := Chunk(text, DefaultChunkSize, DefaultChunkOverlap)
		assert.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 1400)
		assert.Len(t, chunks[1], 1400)
		assert.Len(t, chunks[2], 3000-2*1200)
	})

	t.Run("Counts Characters Not Bytes", func(t *testing.T) {
		chunks := Chunk(strings.Repeat("é", 10), 4, 0)
		assert.Len(t, chunks, 3)
		assert.Equal(t, 4, utf8.RuneCountInString(chunks[0]))
		assert.True(t, utf8.ValidString(chunks[2]))
	})

	t.Run("Bad Overlap Ignored", func(t *testing.T) {
		assert.Equal(t, []string{"abc", "def"}, Chunk("abcdef", 3, 3))
	})
}

func TestStripHTML(t *testing.T) {
	got := Collapse(StripHTML(`<h1>Verse 1</h1><p>Don&#39;t stop &amp; roll</p>`))
	assert.Equal(t, "Verse 1 Don't stop & roll", got)
}

func TestNotebookText(t *testing.T) {
	raw := []byte(`{"cells":[
		{"cell_type":"markdown","source":["# Title\n","intro"]},
		{"cell_type":"raw","source":["ignored"]},
		{"cell_type":"code","source":"print(1)"}
	]}`)
	assert.Equal(t, "# Title\nintro\nprint(1)", NotebookText(raw))
	assert.Equal(t, "", NotebookText([]byte(`not json`)))
}
