package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/core"
)

func TestPDFChunker_SinglePageExample(t *testing.T) {
	src := staticPages{pages: []Page{{Number: 1, Text: strings.Repeat("a", 2200)}}}
	c := NewPDFChunker(src, newTestOCR(nil), 1000, 100)

	chunks, stats, err := c.Chunk(context.Background(), "report.pdf")

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1000, 1000, 400}, []int{chunks[0].Len(), chunks[1].Len(), chunks[2].Len()})
	for _, ch := range chunks {
		assert.Equal(t, PageLocator{Page: 1}, ch.Locator)
	}
	require.NotNil(t, stats.Pages)
	assert.Equal(t, 1, *stats.Pages)
}

func TestPDFChunker_ImageBlocksAppendedAfterPageText(t *testing.T) {
	engine := scriptedEngine{
		"chart":  {{Text: "Revenue", Confidence: 0.92}, {Text: "xx", Confidence: 0.10}},
		"logo":   {{Text: "ACME", Confidence: 0.8}, {Text: "Corp", Confidence: 0.31}},
		"blurry": {{Text: "noise", Confidence: 0.30}},
	}
	src := staticPages{pages: []Page{{
		Number: 1,
		Text:   "Quarterly summary",
		Images: [][]byte{[]byte("chart"), []byte("blurry"), []byte("logo"), []byte("corrupt")},
	}}}
	c := NewPDFChunker(src, newTestOCR(engine), 1000, 100)

	chunks, _, err := c.Chunk(context.Background(), "q.pdf")

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Quarterly summary\n\n[IMAGE_TEXT]: Revenue\n[IMAGE_TEXT]: ACME Corp", chunks[0].Text)
	assert.NotContains(t, chunks[0].Text, "xx")
	assert.NotContains(t, chunks[0].Text, "noise")
	assert.Equal(t, PageLocator{Page: 1, HasImages: true, ImageCount: 4}, chunks[0].Locator)
}

func TestPDFChunker_BlankPagesLeaveGaps(t *testing.T) {
	src := staticPages{pages: []Page{
		{Number: 1, Text: "first"},
		{Number: 2, Text: "  \n\t "},
		{Number: 3, Text: "third"},
	}}
	c := NewPDFChunker(src, newTestOCR(nil), 1000, 100)

	chunks, stats, err := c.Chunk(context.Background(), "gaps.pdf")

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Locator.(PageLocator).Page)
	assert.Equal(t, 3, chunks[1].Locator.(PageLocator).Page)
	assert.Equal(t, 3, *stats.Pages)
}

func TestPDFChunker_BlankWindowsDiscarded(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 20)
	src := staticPages{pages: []Page{{Number: 1, Text: text}}}
	c := NewPDFChunker(src, newTestOCR(nil), 5, 0)

	chunks, _, err := c.Chunk(context.Background(), "pad.pdf")

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abc  ", chunks[0].Text, "surviving windows keep their whitespace")
	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(ch.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 5)
	}
}

func TestPDFChunker_SourceErrorPropagates(t *testing.T) {
	src := staticPages{err: core.ErrExtractionFailure}
	c := NewPDFChunker(src, newTestOCR(nil), 1000, 100)

	_, _, err := c.Chunk(context.Background(), "broken.pdf")

	assert.True(t, errors.Is(err, core.ErrExtractionFailure))
}

func TestFileSource_CorruptFile(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("this is not a pdf"))

	_, err := NewFileSource().Pages(context.Background(), path)

	assert.ErrorIs(t, err, core.ErrExtractionFailure)
}

func TestPDFChunker_Deterministic(t *testing.T) {
	src := staticPages{pages: []Page{
		{Number: 1, Text: strings.Repeat("lorem ipsum ", 300), Images: [][]byte{[]byte("chart")}},
		{Number: 2, Text: strings.Repeat("dolor sit ", 150)},
	}}
	engine := scriptedEngine{"chart": {{Text: "Revenue", Confidence: 0.9}}}
	c := NewPDFChunker(src, newTestOCR(engine), 1000, 100)

	first, _, err := c.Chunk(context.Background(), "d.pdf")
	require.NoError(t, err)
	second, _, err := c.Chunk(context.Background(), "d.pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
