package ingestion_engine

import (
	"context"
	"io"

	"github.com/markdave123-py/officerag/internal/models"
)

// Ingestor is what the service layer and the CLI drive.
type Ingestor interface {
	Upload(ctx context.Context, filename string, data io.Reader, size int64) (*models.Document, error)
	IngestFile(ctx context.Context, path string) (*models.Document, error)
	Delete(ctx context.Context, filename string) error
	List(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, filename string) (*models.Document, error)
}

var _ Ingestor = (*Coordinator)(nil)
