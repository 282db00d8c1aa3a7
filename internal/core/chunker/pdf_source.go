package chunker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/markdave123-py/officerag/internal/core"
)

// FileSource reads page text with ledongthuc/pdf and embedded images with pdfcpu.
// Images are always extracted so page locators carry their counts; whether
// they are read is up to the OCR engine.
type FileSource struct{}

var _ PageSource = (*FileSource)(nil)

// NewFileSource returns a PageSource for PDF files on disk.
func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Pages(ctx context.Context, path string) (pages []Page, err error) {
	// the text parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: read %s: %v", core.ErrExtractionFailure, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrExtractionFailure, path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]Page, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages[i-1].Number = i
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", core.ErrExtractionFailure, i, err)
		}
		pages[i-1].Text = text
	}

	if n > 0 {
		if err := attachImages(path, pages); err != nil {
			slog.Warn("pdf image extraction skipped", "path", path, "error", err)
		}
	}
	return pages, nil
}

// attachImages appends the raw bytes of every extractable image to its page.
func attachImages(path string, pages []Page) error {
	rs, err := os.Open(path)
	if err != nil {
		return err
	}
	defer rs.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return api.ExtractImages(rs, nil, func(img model.Image, _ bool, _ int) error {
		if img.PageNr < 1 || img.PageNr > len(pages) {
			return nil
		}
		data, err := io.ReadAll(img)
		if err != nil {
			// still counts as an image on the page, OCR will find nothing
			data = nil
		}
		pages[img.PageNr-1].Images = append(pages[img.PageNr-1].Images, data)
		return nil
	}, conf)
}
