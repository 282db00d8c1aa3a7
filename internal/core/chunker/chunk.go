package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Locator identifies where a chunk came from. Exactly one of PageLocator,
// SlideLocator or SheetLocator.
type Locator interface {
	// Fields returns the locator as flat vector metadata.
	Fields() map[string]any
	isLocator()
}

// PageLocator tags a chunk of a page-oriented document. HasImages and
// ImageCount describe every embedded image on the page, recognized or not.
type PageLocator struct {
	Page       int
	HasImages  bool
	ImageCount int
}

// SlideLocator tags a presentation chunk. HasImages is true iff at least one
// picture on the slide produced an image-text block; ImageCount counts those blocks.
type SlideLocator struct {
	Slide      int
	HasImages  bool
	ImageCount int
}

// SheetLocator tags a spreadsheet chunk with a 1-based inclusive data-row range.
type SheetLocator struct {
	Sheet    string
	StartRow int
	EndRow   int
}

func (l PageLocator) Fields() map[string]any {
	return map[string]any{"page": l.Page, "has_images": l.HasImages, "image_count": l.ImageCount}
}

func (l SlideLocator) Fields() map[string]any {
	return map[string]any{"slide": l.Slide, "has_images": l.HasImages, "image_count": l.ImageCount}
}

func (l SheetLocator) Fields() map[string]any {
	return map[string]any{"sheet": l.Sheet, "start_row": l.StartRow, "end_row": l.EndRow}
}

func (PageLocator) isLocator()  {}
func (SlideLocator) isLocator() {}
func (SheetLocator) isLocator() {}

// Chunk is a bounded span of extracted text plus its locator.
type Chunk struct {
	Filename string
	Index    int
	Text     string
	Locator  Locator
}

// Len is the chunk length in characters.
func (c Chunk) Len() int { return utf8.RuneCountInString(c.Text) }

// VectorID is the persisted id contract "<filename>_<index>".
func (c Chunk) VectorID() string { return VectorID(c.Filename, c.Index) }

// VectorID builds the id of the i-th chunk of filename.
func VectorID(filename string, i int) string {
	return fmt.Sprintf("%s_%d", filename, i)
}

// Metadata is the payload stored next to the chunk's vector.
func (c Chunk) Metadata(storeText bool) map[string]any {
	m := c.Locator.Fields()
	m["source"] = c.Filename
	m["chunk_index"] = c.Index
	if storeText {
		m["text"] = c.Text
	}
	return m
}

// Stats carries the per-format counts recorded on the ledger row.
type Stats struct {
	Pages  *int
	Slides *int
	Sheets []string
}

// OCR turns one embedded image into an "[IMAGE_TEXT]: ..." block, or "" when
// nothing usable was recognized.
type OCR interface {
	ImageBlock(ctx context.Context, image []byte) string
}

// Chunker turns one file into an ordered chunk sequence. Filename and Index
// are assigned by the Dispatcher.
type Chunker interface {
	Chunk(ctx context.Context, path string) ([]Chunk, Stats, error)
}

func intPtr(v int) *int { return &v }
