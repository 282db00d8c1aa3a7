//go:build !cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/markdave123-py/officerag/internal/core"
)

var _ core.OCREngine = (*TesseractEngine)(nil)

// TesseractEngine is a stub for builds without CGO. Every image fails, and
// the Adapter absorbs the failure as "no text".
type TesseractEngine struct{}

func NewTesseractEngine(...string) (*TesseractEngine, error) {
	return &TesseractEngine{}, nil
}

func (e *TesseractEngine) Recognize(context.Context, []byte) ([]core.OCRLine, error) {
	return nil, fmt.Errorf("%w: built without cgo", core.ErrOCRFailure)
}

func (e *TesseractEngine) Close() error { return nil }
