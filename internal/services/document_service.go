package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/core/ingestion_engine"
	"github.com/markdave123-py/officerag/internal/models"
)

type DocumentService struct {
	ingestor ingestion_engine.Ingestor
}

func NewDocumentService(ing ingestion_engine.Ingestor) *DocumentService {
	return &DocumentService{ingestor: ing}
}

// Upload checks the name before any bytes are stored, then hands the file
// to the ingestor. Processing continues in the background.
func (s *DocumentService) Upload(ctx context.Context, filename string, data io.Reader, size int64) (*models.Document, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}
	if _, err := chunker.DetectFormat(name); err != nil {
		return nil, err
	}
	return s.ingestor.Upload(ctx, name, data, size)
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	docs, err := s.ingestor.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

func (s *DocumentService) Get(ctx context.Context, filename string) (*models.Document, error) {
	return s.ingestor.Get(ctx, filename)
}

func (s *DocumentService) Delete(ctx context.Context, filename string) error {
	name, err := cleanFilename(filename)
	if err != nil {
		return err
	}
	return s.ingestor.Delete(ctx, name)
}

// cleanFilename strips any directory part so names cannot address other paths.
func cleanFilename(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: missing filename", core.ErrUnsupportedFormat)
	}
	return name, nil
}
