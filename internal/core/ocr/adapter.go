package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/markdave123-py/officerag/internal/core"
)

const (
	// MinConfidence is exclusive: a line must score above it to be kept.
	MinConfidence = 0.30
	// ImageTextPrefix marks text recognized in an embedded image.
	ImageTextPrefix = "[IMAGE_TEXT]: "
)

// Adapter wraps a process-wide OCR engine. Calls into the engine are
// serialized and per-image failures are absorbed as "no text".
type Adapter struct {
	mu     sync.Mutex
	engine core.OCREngine
	log    *slog.Logger
}

func NewAdapter(engine core.OCREngine) *Adapter {
	return &Adapter{engine: engine, log: slog.With("component", "ocr")}
}

// Lines returns the trimmed text of every recognized line scoring above
// MinConfidence, in engine order.
func (a *Adapter) Lines(ctx context.Context, image []byte) []string {
	if a == nil || a.engine == nil {
		return nil
	}
	if len(image) == 0 {
		a.log.Warn("ocr failure absorbed", "error", fmt.Errorf("%w: empty image data", core.ErrOCRFailure))
		return nil
	}

	raw, err := a.recognize(ctx, image)
	if err != nil {
		a.log.Warn("ocr failure absorbed", "bytes", len(image), "error", err)
		return nil
	}

	var kept []string
	for _, l := range raw {
		text := strings.TrimSpace(l.Text)
		if l.Confidence > MinConfidence && text != "" {
			kept = append(kept, text)
		}
	}
	return kept
}

// ImageBlock renders the kept lines of one image as a single
// "[IMAGE_TEXT]: ..." block, or "" when nothing was kept.
func (a *Adapter) ImageBlock(ctx context.Context, image []byte) string {
	lines := a.Lines(ctx, image)
	if len(lines) == 0 {
		return ""
	}
	return ImageTextPrefix + strings.Join(lines, " ")
}

func (a *Adapter) recognize(ctx context.Context, image []byte) (lines []core.OCRLine, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("%w: engine panic: %v", core.ErrOCRFailure, r)
		}
	}()
	return a.engine.Recognize(ctx, image)
}

// NopEngine recognizes nothing. It backs deployments with OCR disabled.
type NopEngine struct{}

func (NopEngine) Recognize(context.Context, []byte) ([]core.OCRLine, error) { return nil, nil }

var _ core.OCREngine = NopEngine{}
