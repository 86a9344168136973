package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBelowMaxCharsIsSingleChunk(t *testing.T) {
	text := "short text"
	chunks := Split(text, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	assert.Empty(t, Split("", 100))
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40)
	chunks := Split(text, 50)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], strings.Repeat("a", 40)))
	assert.True(t, strings.Contains(chunks[1], strings.Repeat("b", 40)))
}

func TestSplitConcatenationCoversInput(t *testing.T) {
	text := "Alice went to the market. Bob stayed home! Was that wise? " +
		strings.Repeat("Carol walked the dog; Dave read a book, quietly. ", 50)
	chunks := Split(text, 200)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitFallsBackToCharacters(t *testing.T) {
	text := strings.Repeat("x", 500)
	chunks := Split(text, 100)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitChunkNeverExceedsByMuchOnWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 100)
	chunks := Split(text, 30)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 30+len("word "))
	}
}
