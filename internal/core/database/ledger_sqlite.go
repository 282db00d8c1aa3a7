package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

var _ core.LedgerClient = (*SQLiteLedger)(nil)

// SQLiteLedger is a single-file ledger for local runs and the CLI.
// Timestamps are stored as fixed-width RFC3339 text.
type SQLiteLedger struct {
	db   *sql.DB
	path string
}

func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer avoids SQLITE_BUSY between worker goroutines
	db.SetMaxOpenConns(1)

	if err := runBootstrap(context.Background(), db, "scripts/sqlite.sql"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteLedger{db: db, path: path}, nil
}

func (s *SQLiteLedger) Path() string { return s.path }

func (s *SQLiteLedger) Close() error { return s.db.Close() }

func (s *SQLiteLedger) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	sheets, err := encodeSheets(doc.SheetNames)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (filename) DO NOTHING`,
		doc.ID, doc.Filename, doc.Format, doc.ContentType, doc.FileSize, doc.StorageKey, doc.Status,
		doc.TotalChunks, doc.TotalPages, doc.TotalSlides, sheets, doc.ErrorMessage,
		doc.ChunkSize, doc.Overlap, doc.EmbeddingModel,
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), formatNullableTime(doc.ProcessedAt))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %q", core.ErrAlreadyExists, doc.Filename)
	}
	return nil
}

func (s *SQLiteLedger) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	sheets, err := encodeSheets(doc.SheetNames)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			format = ?, content_type = ?, file_size = ?, storage_key = ?, status = ?,
			total_chunks = ?, total_pages = ?, total_slides = ?, sheet_names = ?,
			error_message = ?, chunk_size = ?, overlap = ?, embedding_model = ?,
			processed_at = ?, updated_at = ?
		WHERE id = ?`,
		doc.Format, doc.ContentType, doc.FileSize, doc.StorageKey, doc.Status,
		doc.TotalChunks, doc.TotalPages, doc.TotalSlides, sheets,
		doc.ErrorMessage, doc.ChunkSize, doc.Overlap, doc.EmbeddingModel,
		formatNullableTime(doc.ProcessedAt), formatTime(doc.UpdatedAt), doc.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *SQLiteLedger) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	return s.getDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
}

func (s *SQLiteLedger) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	return s.getDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE filename = ?`, filename)
}

func (s *SQLiteLedger) getDocument(ctx context.Context, q, arg string) (*models.Document, error) {
	d, err := scanSQLiteDocument(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (s *SQLiteLedger) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *SQLiteLedger) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteLedger) InsertVectorMetadata(ctx context.Context, rows []models.VectorMetadata) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO vector_metadata
			(vector_id, document_id, filename, chunk_index, page, slide, sheet, start_row, end_row,
			 chunk_length, has_images, image_count, embedding_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range rows {
		r := &rows[i]
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx,
			r.VectorID, r.DocumentID, r.Filename, r.ChunkIndex, r.Page, r.Slide, r.Sheet, r.StartRow, r.EndRow,
			r.ChunkLength, r.HasImages, r.ImageCount, r.EmbeddingModel, formatTime(created),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert vector metadata %s: %w", r.VectorID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteLedger) ListVectorIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vector_id FROM vector_metadata WHERE document_id = ? ORDER BY chunk_index ASC`, documentID)
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

func (s *SQLiteLedger) DeleteVectorMetadata(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vector_metadata WHERE document_id = ?`, documentID)
	return err
}

func scanSQLiteDocument(r rowScanner) (*models.Document, error) {
	var (
		d                models.Document
		sheets           sql.NullString
		created, updated string
		processed        sql.NullString
	)
	if err := r.Scan(
		&d.ID, &d.Filename, &d.Format, &d.ContentType, &d.FileSize, &d.StorageKey, &d.Status,
		&d.TotalChunks, &d.TotalPages, &d.TotalSlides, &sheets, &d.ErrorMessage,
		&d.ChunkSize, &d.Overlap, &d.EmbeddingModel, &created, &updated, &processed,
	); err != nil {
		return nil, err
	}

	names, err := decodeSheets([]byte(sheets.String))
	if err != nil {
		return nil, err
	}
	d.SheetNames = names
	if d.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if processed.Valid {
		t, err := time.Parse(sqliteTimeLayout, processed.String)
		if err != nil {
			return nil, fmt.Errorf("parse processed_at: %w", err)
		}
		d.ProcessedAt = &t
	}
	return &d, nil
}

// sqliteTimeLayout is fixed width so text order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// formatNullableTime returns nil for a nil time so the column stays NULL.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
