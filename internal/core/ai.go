package core

import "context"

// EmbeddingProvider turns texts into vectors, one per input, in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// OCRLine is one recognized line with its confidence in [0,1].
type OCRLine struct {
	Text       string
	Confidence float64
}

// OCREngine recognizes text in one encoded raster image. An image without
// text yields an empty slice, not an error.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) ([]OCRLine, error)
}
