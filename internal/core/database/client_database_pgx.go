package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

var _ core.LedgerClient = (*DatabaseClient)(nil)

// DatabaseClient is the Postgres ledger. It also owns the pool the pgvector
// index shares.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// buildDSN appends verify-ca SSL params when a root certificate is configured.
func buildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DB exposes the pool so the vector index can share it.
func (c *DatabaseClient) DB() *sql.DB { return c.db }

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const documentColumns = `id, filename, format, content_type, file_size, storage_key, status,
	total_chunks, total_pages, total_slides, sheet_names, error_message,
	chunk_size, overlap, embedding_model, created_at, updated_at, processed_at`

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	sheets, err := encodeSheets(doc.SheetNames)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15,
			COALESCE($16, now()), COALESCE($17, now()), $18)
		ON CONFLICT (filename) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Filename, doc.Format, doc.ContentType, doc.FileSize, doc.StorageKey, doc.Status,
		doc.TotalChunks, doc.TotalPages, doc.TotalSlides, sheets, doc.ErrorMessage,
		doc.ChunkSize, doc.Overlap, doc.EmbeddingModel, nullTime(doc.CreatedAt), nullTime(doc.UpdatedAt), doc.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %q", core.ErrAlreadyExists, doc.Filename)
	}
	return nil
}

func (c *DatabaseClient) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	sheets, err := encodeSheets(doc.SheetNames)
	if err != nil {
		return err
	}
	const q = `
		UPDATE documents SET
			format = $2, content_type = $3, file_size = $4, storage_key = $5, status = $6,
			total_chunks = $7, total_pages = $8, total_slides = $9, sheet_names = $10::jsonb,
			error_message = $11, chunk_size = $12, overlap = $13, embedding_model = $14,
			processed_at = $15, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Format, doc.ContentType, doc.FileSize, doc.StorageKey, doc.Status,
		doc.TotalChunks, doc.TotalPages, doc.TotalSlides, sheets,
		doc.ErrorMessage, doc.ChunkSize, doc.Overlap, doc.EmbeddingModel, doc.ProcessedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, doc.ID)
	}
	return nil
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	return c.getDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

func (c *DatabaseClient) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	return c.getDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE filename = $1`, filename)
}

func (c *DatabaseClient) getDocument(ctx context.Context, q string, arg string) (*models.Document, error) {
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

// InsertVectorMetadata inserts rows in a single transaction.
func (c *DatabaseClient) InsertVectorMetadata(ctx context.Context, rows []models.VectorMetadata) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO vector_metadata
			(vector_id, document_id, filename, chunk_index, page, slide, sheet, start_row, end_row,
			 chunk_length, has_images, image_count, embedding_model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
		ON CONFLICT (vector_id) DO UPDATE SET
			document_id = EXCLUDED.document_id, chunk_index = EXCLUDED.chunk_index,
			page = EXCLUDED.page, slide = EXCLUDED.slide, sheet = EXCLUDED.sheet,
			start_row = EXCLUDED.start_row, end_row = EXCLUDED.end_row,
			chunk_length = EXCLUDED.chunk_length, has_images = EXCLUDED.has_images,
			image_count = EXCLUDED.image_count, embedding_model = EXCLUDED.embedding_model
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			r.VectorID, r.DocumentID, r.Filename, r.ChunkIndex, r.Page, r.Slide, r.Sheet, r.StartRow, r.EndRow,
			r.ChunkLength, r.HasImages, r.ImageCount, r.EmbeddingModel, nullTime(r.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert vector metadata %s: %w", r.VectorID, err)
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListVectorIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT vector_id FROM vector_metadata WHERE document_id = $1 ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (c *DatabaseClient) DeleteVectorMetadata(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM vector_metadata WHERE document_id = $1`, documentID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*models.Document, error) {
	var (
		d      models.Document
		sheets []byte
	)
	if err := r.Scan(
		&d.ID, &d.Filename, &d.Format, &d.ContentType, &d.FileSize, &d.StorageKey, &d.Status,
		&d.TotalChunks, &d.TotalPages, &d.TotalSlides, &sheets, &d.ErrorMessage,
		&d.ChunkSize, &d.Overlap, &d.EmbeddingModel, &d.CreatedAt, &d.UpdatedAt, &d.ProcessedAt,
	); err != nil {
		return nil, err
	}
	names, err := decodeSheets(sheets)
	if err != nil {
		return nil, err
	}
	d.SheetNames = names
	return &d, nil
}

// encodeSheets returns nil for no sheets so the column stays NULL.
func encodeSheets(names []string) (any, error) {
	if names == nil {
		return nil, nil
	}
	b, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("encode sheet names: %w", err)
	}
	return string(b), nil
}

func decodeSheets(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode sheet names: %w", err)
	}
	return names, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
