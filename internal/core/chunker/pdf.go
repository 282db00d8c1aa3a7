package chunker

import (
	"context"
	"log/slog"
	"strings"
)

// Page is one PDF page: its native text and the raw bytes of every embedded
// raster image, in encounter order.
type Page struct {
	Number int
	Text   string
	Images [][]byte
}

// PageSource reads the pages of a page-oriented document.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]Page, error)
}

// PDFChunker chunks page text with a character sliding window.
type PDFChunker struct {
	src     PageSource
	ocr     OCR
	size    int
	overlap int
	log     *slog.Logger
}

func NewPDFChunker(src PageSource, ocr OCR, size, overlap int) *PDFChunker {
	return &PDFChunker{src: src, ocr: ocr, size: size, overlap: overlap, log: slog.With("component", "pdf_chunker")}
}

func (c *PDFChunker) Chunk(ctx context.Context, path string) ([]Chunk, Stats, error) {
	pages, err := c.src.Pages(ctx, path)
	if err != nil {
		return nil, Stats{}, err
	}

	var out []Chunk
	for _, p := range pages {
		var blocks []string
		for _, img := range p.Images {
			if b := c.ocr.ImageBlock(ctx, img); b != "" {
				blocks = append(blocks, b)
			}
		}

		text := p.Text
		if len(blocks) > 0 {
			text += "\n\n" + strings.Join(blocks, "\n")
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		loc := PageLocator{Page: p.Number, HasImages: len(p.Images) > 0, ImageCount: len(p.Images)}
		n := 0
		for _, w := range Windows(text, c.size, c.overlap) {
			if strings.TrimSpace(w) == "" {
				continue
			}
			out = append(out, Chunk{Text: w, Locator: loc})
			n++
		}
		c.log.Debug("page chunked", "page", p.Number, "chars", len([]rune(text)), "image_blocks", len(blocks), "chunks", n)
	}

	return out, Stats{Pages: intPtr(len(pages))}, nil
}
