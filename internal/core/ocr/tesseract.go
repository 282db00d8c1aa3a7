//go:build cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/markdave123-py/officerag/internal/core"
)

var _ core.OCREngine = (*TesseractEngine)(nil)

// TesseractEngine runs Tesseract through gosseract. The client is not safe
// for concurrent use; wrap it in an Adapter.
type TesseractEngine struct {
	client *gosseract.Client
}

// NewTesseractEngine loads the engine once with the given languages (e.g. "eng").
func NewTesseractEngine(languages ...string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("tesseract language: %w", err)
		}
	}
	return &TesseractEngine{client: client}, nil
}

// Recognize returns one line per Tesseract text line with confidence scaled to [0,1].
func (e *TesseractEngine) Recognize(_ context.Context, image []byte) ([]core.OCRLine, error) {
	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrOCRFailure, err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrOCRFailure, err)
	}

	lines := make([]core.OCRLine, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, core.OCRLine{Text: b.Word, Confidence: b.Confidence / 100})
	}
	return lines, nil
}

func (e *TesseractEngine) Close() error {
	return e.client.Close()
}
