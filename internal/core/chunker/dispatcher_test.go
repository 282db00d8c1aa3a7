package chunker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/core"
)

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"a.pdf":  FormatPDF,
		"b.XLSX": FormatSpreadsheet,
		"c.xls":  FormatSpreadsheet,
		"d.pptx": FormatPresentation,
		"e.ppt":  FormatLegacyPresentation,
		"f.doc":  FormatLegacyWord,
		"g.docx": FormatLegacyWord,
	}
	for name, want := range tests {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := DetectFormat("notes.txt")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	_, err = DetectFormat("README")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func newTestDispatcher(conv core.Converter) (*Dispatcher, *recordingChunker, *recordingChunker, *recordingChunker) {
	pdf := &recordingChunker{chunks: []Chunk{
		{Text: "p1", Locator: PageLocator{Page: 1}},
		{Text: "p2", Locator: PageLocator{Page: 2}},
	}}
	sheet := &recordingChunker{chunks: []Chunk{{Text: "r", Locator: SheetLocator{Sheet: "S", StartRow: 1, EndRow: 1}}}}
	deck := &recordingChunker{chunks: []Chunk{{Text: "s", Locator: SlideLocator{Slide: 1}}}}
	return NewDispatcher(pdf, sheet, deck, conv), pdf, sheet, deck
}

func TestDispatcher_TagsChunksWithFilenameAndIndex(t *testing.T) {
	d, pdf, _, _ := newTestDispatcher(nil)

	res, err := d.Chunk(context.Background(), "/tmp/x/report.pdf", "report.pdf")

	require.NoError(t, err)
	assert.Equal(t, FormatPDF, res.Format)
	assert.Equal(t, []string{"/tmp/x/report.pdf"}, pdf.paths)
	require.Len(t, res.Chunks, 2)
	for i, ch := range res.Chunks {
		assert.Equal(t, "report.pdf", ch.Filename)
		assert.Equal(t, i, ch.Index)
	}
	assert.Equal(t, "report.pdf_1", res.Chunks[1].VectorID())
}

func TestDispatcher_LegacyFormatsAreConvertedAndCleanedUp(t *testing.T) {
	conv := &fakeConverter{t: t}
	d, pdf, _, deck := newTestDispatcher(conv)
	src := filepath.Join(t.TempDir(), "memo.docx")

	res, err := d.Chunk(context.Background(), src, "memo.docx")
	require.NoError(t, err)
	assert.Equal(t, FormatLegacyWord, res.Format)
	assert.Equal(t, "memo.docx", res.Chunks[0].Filename)
	require.Len(t, pdf.paths, 1)
	assert.Equal(t, ".pdf", filepath.Ext(pdf.paths[0]))

	_, err = d.Chunk(context.Background(), filepath.Join(t.TempDir(), "old.ppt"), "old.ppt")
	require.NoError(t, err)
	require.Len(t, deck.paths, 1)
	assert.Equal(t, ".pptx", filepath.Ext(deck.paths[0]))

	assert.Equal(t, 2, conv.cleaned)
	for _, a := range conv.artifacts {
		_, statErr := os.Stat(a)
		assert.True(t, os.IsNotExist(statErr), "artifact %s left behind", a)
	}
}

func TestDispatcher_ConversionFailure(t *testing.T) {
	conv := &fakeConverter{t: t, err: errors.Join(core.ErrConversionFailure, errors.New("soffice exited 1"))}
	d, pdf, _, _ := newTestDispatcher(conv)

	_, err := d.Chunk(context.Background(), filepath.Join(t.TempDir(), "memo.doc"), "memo.doc")

	assert.ErrorIs(t, err, core.ErrConversionFailure)
	assert.Empty(t, pdf.paths)
	assert.Equal(t, 1, conv.cleaned, "partial artifacts are discarded on failure")
}

func TestDispatcher_NoConverter(t *testing.T) {
	d, _, _, _ := newTestDispatcher(nil)

	_, err := d.Chunk(context.Background(), "deck.ppt", "deck.ppt")

	assert.ErrorIs(t, err, core.ErrConversionFailure)
}

func TestDispatcher_UnsupportedFormat(t *testing.T) {
	d, pdf, sheet, deck := newTestDispatcher(nil)

	_, err := d.Chunk(context.Background(), "notes.txt", "notes.txt")

	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Empty(t, pdf.paths)
	assert.Empty(t, sheet.paths)
	assert.Empty(t, deck.paths)
}

func TestChunk_Metadata(t *testing.T) {
	ch := Chunk{Filename: "book.xlsx", Index: 2, Text: "a b", Locator: SheetLocator{Sheet: "S", StartRow: 6, EndRow: 10}}

	withText := ch.Metadata(true)
	assert.Equal(t, map[string]any{
		"source": "book.xlsx", "chunk_index": 2, "text": "a b",
		"sheet": "S", "start_row": 6, "end_row": 10,
	}, withText)

	_, hasText := ch.Metadata(false)["text"]
	assert.False(t, hasText)
}
