package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

const systemPrompt = "You are an intelligent assistant answering based only on the given document content. " +
	"If unsure, say 'I cannot find this in the documents.'"

// Retriever is the similarity search the query path runs on.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]models.Match, error)
}

type QueryService struct {
	retriever Retriever
	llm       core.LLMProvider
	log       *slog.Logger
}

func NewQueryService(r Retriever, llm core.LLMProvider) *QueryService {
	return &QueryService{retriever: r, llm: llm, log: slog.With("component", "query_service")}
}

// Search returns the ranked matches for text, or ErrNoMatches.
func (s *QueryService) Search(ctx context.Context, text string, topK int) ([]models.Match, error) {
	matches, err := s.retriever.Query(ctx, text, topK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, core.ErrNoMatches
	}
	return matches, nil
}

// Answer generates a reply grounded on the top matches and returns it with them.
func (s *QueryService) Answer(ctx context.Context, question string, topK int) (*models.Answer, error) {
	matches, err := s.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	out := &models.Answer{Question: strings.TrimSpace(question), References: matches}
	prompt, ok := BuildPrompt(out.Question, matches)
	if !ok {
		s.log.Warn("matches carry no stored text, skipping generation", "matches", len(matches))
		return out, nil
	}

	answer, err := s.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	out.Answer = answer
	return out, nil
}

// BuildPrompt joins the match texts into the generation prompt. ok is false
// when no match has text.
func BuildPrompt(question string, matches []models.Match) (prompt string, ok bool) {
	var parts []string
	for _, m := range matches {
		if m.Text != nil && strings.TrimSpace(*m.Text) != "" {
			parts = append(parts, *m.Text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return fmt.Sprintf("Use the following context to answer the user's question.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(parts, "\n\n"), question), true
}
