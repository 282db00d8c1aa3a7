package services

import (
	"context"
	"fmt"
	"io"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

type fakeIngestor struct {
	docs     map[string]*models.Document
	uploaded []string
	deleted  []string
	body     string
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{docs: map[string]*models.Document{}}
}

func (f *fakeIngestor) Upload(_ context.Context, filename string, data io.Reader, size int64) (*models.Document, error) {
	if _, ok := f.docs[filename]; ok {
		return nil, fmt.Errorf("%w: %q", core.ErrAlreadyExists, filename)
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	f.body = string(b)
	d := &models.Document{ID: "id-" + filename, Filename: filename, FileSize: size, Status: models.StatusPending}
	f.docs[filename] = d
	f.uploaded = append(f.uploaded, filename)
	return d, nil
}

func (f *fakeIngestor) IngestFile(context.Context, string) (*models.Document, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeIngestor) Delete(_ context.Context, filename string) error {
	if _, ok := f.docs[filename]; !ok {
		return fmt.Errorf("%w: %q", core.ErrNotFound, filename)
	}
	delete(f.docs, filename)
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeIngestor) List(context.Context) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeIngestor) Get(_ context.Context, filename string) (*models.Document, error) {
	d, ok := f.docs[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrNotFound, filename)
	}
	return d, nil
}

type fakeRetriever struct {
	matches []models.Match
	err     error
	topK    int
}

func (f *fakeRetriever) Query(_ context.Context, _ string, topK int) ([]models.Match, error) {
	f.topK = topK
	return f.matches, f.err
}

type fakeLLM struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (f *fakeLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
