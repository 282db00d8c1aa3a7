package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/markdave123-py/officerag/internal/core"
)

// maxEmbedBatch is the most contents BatchEmbedContents accepts per call.
const maxEmbedBatch = 100

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	limiter   *rate.Limiter
}

// NewGeminiEmbedder builds an embedder limited to rps requests per second.
// rps <= 0 disables limiting.
func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, rps float64) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, limiter: newLimiter(rps)}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) ModelName() string { return g.modelName }

// EmbedTexts returns one vector per text, in input order.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, maxEmbedBatch, g.limiter, g.embedBatch)
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embedInBatches splits texts into requests of at most size, waiting on the
// limiter before each one. Any failure or count mismatch is ErrEmbeddingFailure.
func embedInBatches(ctx context.Context, texts []string, size int, limiter *rate.Limiter, fn embedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if size <= 0 {
		size = maxEmbedBatch
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
			}
		}
		vecs, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: texts %d-%d: %w", core.ErrEmbeddingFailure, start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbeddingFailure, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
