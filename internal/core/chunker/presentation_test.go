package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/core"
)

func TestReadDeck(t *testing.T) {
	path := buildPPTX(t, t.TempDir(), []pptxSlide{
		{texts: []string{"Title", "  line one\nline two  "}},
		{images: [][]byte{[]byte("chart")}},
	})

	slides, err := ReadDeck(path)

	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, 1, slides[0].Number)
	assert.Equal(t, []string{"Title", "line one\nline two"}, slides[0].Texts)
	assert.Empty(t, slides[0].Images)
	assert.Empty(t, slides[1].Texts)
	assert.Equal(t, [][]byte{[]byte("chart")}, slides[1].Images)
}

func TestReadDeck_NotAPresentation(t *testing.T) {
	path := writeFile(t, "bad.pptx", []byte("nope"))

	_, err := ReadDeck(path)

	assert.ErrorIs(t, err, core.ErrExtractionFailure)
}

func TestPresentationChunker_OCRFiltering(t *testing.T) {
	path := buildPPTX(t, t.TempDir(), []pptxSlide{
		{texts: []string{"Q3 results"}, images: [][]byte{[]byte("chart")}},
	})
	engine := scriptedEngine{"chart": {{Text: "Revenue", Confidence: 0.92}, {Text: "xx", Confidence: 0.10}}}

	chunks, stats, err := NewPresentationChunker(newTestOCR(engine), 1000, 100).Chunk(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Revenue")
	assert.NotContains(t, chunks[0].Text, "xx")
	assert.Equal(t, "Q3 results\n\n[IMAGE_TEXT]: Revenue", chunks[0].Text)
	assert.Equal(t, SlideLocator{Slide: 1, HasImages: true, ImageCount: 1}, chunks[0].Locator)
	assert.Equal(t, 1, *stats.Slides)
}

func TestPresentationChunker_EmptySlidesSkipped(t *testing.T) {
	path := buildPPTX(t, t.TempDir(), []pptxSlide{
		{texts: []string{"intro"}},
		{texts: []string{"   "}, images: [][]byte{[]byte("unreadable")}},
		{texts: []string{"outro"}},
	})

	chunks, stats, err := NewPresentationChunker(newTestOCR(scriptedEngine{}), 1000, 100).Chunk(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, SlideLocator{Slide: 1}, chunks[0].Locator)
	assert.Equal(t, SlideLocator{Slide: 3}, chunks[1].Locator)
	assert.Equal(t, 3, *stats.Slides)
}

func TestPresentationChunker_WindowsAreTrimmedAndBounded(t *testing.T) {
	long := strings.Repeat("word ", 500)
	c := NewPresentationChunker(newTestOCR(nil), 300, 50)
	c.read = func(string) ([]Slide, error) {
		return []Slide{{Number: 4, Texts: []string{strings.TrimSpace(long)}}}, nil
	}

	chunks, _, err := c.Chunk(context.Background(), "deck.pptx")

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, strings.TrimSpace(ch.Text), ch.Text)
		assert.NotEmpty(t, ch.Text)
		assert.LessOrEqual(t, ch.Len(), 300)
		assert.Equal(t, 4, ch.Locator.(SlideLocator).Slide)
	}
}

func TestPresentationChunker_Deterministic(t *testing.T) {
	path := buildPPTX(t, t.TempDir(), []pptxSlide{
		{texts: []string{"Q3 results", strings.Repeat("margin ", 200)}, images: [][]byte{[]byte("chart")}},
		{texts: []string{"   "}},
		{texts: []string{"Outlook", "hiring plan"}, images: [][]byte{[]byte("unreadable")}},
	})
	engine := scriptedEngine{"chart": {{Text: "Revenue", Confidence: 0.92}}}
	c := NewPresentationChunker(newTestOCR(engine), 500, 50)

	first, firstStats, err := c.Chunk(context.Background(), path)
	require.NoError(t, err)
	second, secondStats, err := c.Chunk(context.Background(), path)
	require.NoError(t, err)

	require.Greater(t, len(first), 2)
	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}
