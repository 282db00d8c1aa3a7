package chunker

import (
	"context"
	"log/slog"
	"strings"
)

// PresentationChunker chunks slide text plus picture OCR with a sliding window.
type PresentationChunker struct {
	ocr     OCR
	size    int
	overlap int
	read    func(path string) ([]Slide, error)
	log     *slog.Logger
}

func NewPresentationChunker(ocr OCR, size, overlap int) *PresentationChunker {
	return &PresentationChunker{
		ocr:     ocr,
		size:    size,
		overlap: overlap,
		read:    ReadDeck,
		log:     slog.With("component", "presentation_chunker"),
	}
}

func (c *PresentationChunker) Chunk(ctx context.Context, path string) ([]Chunk, Stats, error) {
	slides, err := c.read(path)
	if err != nil {
		return nil, Stats{}, err
	}

	var out []Chunk
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		out = append(out, c.chunkSlide(ctx, s)...)
	}
	return out, Stats{Slides: intPtr(len(slides))}, nil
}

func (c *PresentationChunker) chunkSlide(ctx context.Context, s Slide) []Chunk {
	var blocks []string
	for _, img := range s.Images {
		if b := c.ocr.ImageBlock(ctx, img); b != "" {
			blocks = append(blocks, b)
		}
	}

	text := strings.Join(s.Texts, "\n")
	if len(blocks) > 0 {
		text += "\n\n" + strings.Join(blocks, "\n")
	}
	if strings.TrimSpace(text) == "" {
		c.log.Debug("empty slide skipped", "slide", s.Number)
		return nil
	}

	loc := SlideLocator{Slide: s.Number, HasImages: len(blocks) > 0, ImageCount: len(blocks)}
	var out []Chunk
	for _, w := range Windows(text, c.size, c.overlap) {
		if w = strings.TrimSpace(w); w == "" {
			continue
		}
		out = append(out, Chunk{Text: w, Locator: loc})
	}
	return out
}
