package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

type mockIngestor struct {
	docs    map[string]models.Document
	ingests []string
	failOn  string
}

func (m *mockIngestor) IngestFile(_ context.Context, path string) (*models.Document, error) {
	name := filepath.Base(path)
	if name == m.failOn {
		return nil, fmt.Errorf("%w: %s", core.ErrNoContentExtracted, name)
	}
	m.ingests = append(m.ingests, name)
	pages := 2
	d := models.Document{Filename: name, Format: "pdf", Status: models.StatusCompleted, TotalChunks: 4, TotalPages: &pages}
	m.docs[name] = d
	return &d, nil
}

func (m *mockIngestor) Delete(_ context.Context, filename string) error {
	if _, ok := m.docs[filename]; !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}
	delete(m.docs, filename)
	return nil
}

func (m *mockIngestor) List(context.Context) ([]models.Document, error) {
	var out []models.Document
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockIngestor) Get(_ context.Context, filename string) (*models.Document, error) {
	d, ok := m.docs[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}
	return &d, nil
}

type mockQueries struct {
	topK int
}

func (m *mockQueries) Search(_ context.Context, _ string, topK int) ([]models.Match, error) {
	m.topK = topK
	slide := 3
	return []models.Match{{ID: "deck.pptx_0", Filename: "deck.pptx", Score: 0.8123, Slide: &slide}}, nil
}

func (m *mockQueries) Answer(ctx context.Context, question string, topK int) (*models.Answer, error) {
	matches, _ := m.Search(ctx, question, topK)
	return &models.Answer{Question: question, Answer: "Margins improved.", References: matches}, nil
}

// setupTestServices injects mocks and returns a cleanup func.
func setupTestServices() (*mockIngestor, *mockQueries, func()) {
	ing := &mockIngestor{docs: map[string]models.Document{}}
	q := &mockQueries{}
	prevIng, prevQ, prevClose := ingestor, queries, closeApp
	ingestor, queries, closeApp = ing, q, nil
	return ing, q, func() {
		ingestor, queries, closeApp = prevIng, prevQ, prevClose
		listJSON, queryJSON, querySearchOnly, queryTopK = false, false, false, 0
	}
}
