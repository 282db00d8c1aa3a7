package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

// Engine answers similarity queries with the embedding model used at ingest.
type Engine struct {
	embedder    core.EmbeddingProvider
	index       core.VectorIndex
	defaultTopK int
	log         *slog.Logger
}

func NewEngine(emb core.EmbeddingProvider, idx core.VectorIndex, defaultTopK int) *Engine {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Engine{embedder: emb, index: idx, defaultTopK: defaultTopK, log: slog.With("component", "retrieval")}
}

// Query returns up to topK matches in the order the index ranked them.
// An empty result is not an error.
func (e *Engine) Query(ctx context.Context, text string, topK int) ([]models.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = e.defaultTopK
	}

	vecs, err := e.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		if errors.Is(err, core.ErrEmbeddingFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 query", core.ErrEmbeddingFailure, len(vecs))
	}

	hits, err := e.index.Query(ctx, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector index query: %w", err)
	}

	matches := make([]models.Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, toMatch(h))
	}
	e.log.Debug("query served", "top_k", topK, "matches", len(matches))
	return matches, nil
}

func toMatch(h models.ScoredRecord) models.Match {
	m := models.Match{
		ID:       h.ID,
		Score:    h.Score,
		Text:     stringField(h.Metadata, "text"),
		Page:     intField(h.Metadata, "page"),
		Slide:    intField(h.Metadata, "slide"),
		Sheet:    stringField(h.Metadata, "sheet"),
		StartRow: intField(h.Metadata, "start_row"),
		EndRow:   intField(h.Metadata, "end_row"),
	}
	if src := stringField(h.Metadata, "source"); src != nil {
		m.Filename = *src
	}
	return m
}

func stringField(meta map[string]any, key string) *string {
	s, ok := meta[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// intField accepts the numeric shapes metadata takes after a JSON round trip.
func intField(meta map[string]any, key string) *int {
	var n int
	switch v := meta[key].(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil
		}
		n = int(i)
	default:
		return nil
	}
	return &n
}
