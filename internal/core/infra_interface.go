package core

import (
	"context"
	"io"

	"github.com/markdave123-py/officerag/internal/models"
)

// LedgerClient is the document metadata store.
// It abstracts Postgres/SQLite so higher layers never depend on a specific DB.
// Lookups return (nil, nil) when the row does not exist.
type LedgerClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	InsertVectorMetadata(ctx context.Context, rows []models.VectorMetadata) error
	ListVectorIDs(ctx context.Context, documentID string) ([]string, error)
	DeleteVectorMetadata(ctx context.Context, documentID string) error

	Close() error
}

// VectorIndex is the similarity index. Query returns hits ordered by the
// index's own score.
type VectorIndex interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.ScoredRecord, error)
	Delete(ctx context.Context, ids []string) error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (location string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// Converter turns a legacy office file into targetExt (e.g. "pdf", "pptx").
// The returned cleanup removes every artifact the conversion produced and
// must be called on both success and failure.
type Converter interface {
	Convert(ctx context.Context, path, targetExt string) (out string, cleanup func(), err error)
}
