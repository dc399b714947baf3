package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split("", 100))
	assert.Empty(t, Split("   \n\n  \t ", 100))
}

func TestSplit_SingleParagraph(t *testing.T) {
	chunks := Split("A short paragraph.", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "A short paragraph.", chunks[0].Content)
}

func TestSplit_PacksParagraphs(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := Split(text, 60)

	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "First paragraph")
	assert.Contains(t, chunks[0].Content, "Second paragraph")
	assert.Contains(t, chunks[1].Content, "Third paragraph")
}

func TestSplit_CapRespected(t *testing.T) {
	text := strings.Repeat("Sentence number one is right here. ", 50)
	chunks := Split(text, 120)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 120)
	}
}

func TestSplit_OrderAndIndices(t *testing.T) {
	text := "Alpha paragraph.\n\nBravo paragraph.\n\nCharlie paragraph.\n\nDelta paragraph."
	chunks := Split(text, 20)

	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
	assert.Contains(t, chunks[0].Content, "Alpha")
	assert.Contains(t, chunks[3].Content, "Delta")
}

func TestSplit_OffsetsIndexSource(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph over here."
	chunks := Split(text, 30)

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, c.Content, text[c.Start:c.End])
	}
}

func TestSplit_PrefersSentenceBreaks(t *testing.T) {
	text := "One full sentence right here. Another full sentence follows it. And a third one closes out."
	chunks := Split(text, 40)

	require.GreaterOrEqual(t, len(chunks), 2)
	// No chunk should end mid-word when sentence breaks are available.
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Content, "."), "chunk %q should end at a sentence", c.Content)
	}
}

func TestSplit_HardCutLongSentence(t *testing.T) {
	// A single "sentence" with no terminal punctuation, longer than the cap.
	text := strings.Repeat("word ", 100)
	chunks := Split(text, 50)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 50)
		assert.NotContains(t, c.Content, "  ")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := "Alpha one. Bravo two.\n\nCharlie three. Delta four."
	a := Split(text, 30)
	b := Split(text, 30)
	assert.Equal(t, a, b)
}
