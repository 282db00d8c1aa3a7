package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

var _ core.VectorIndex = (*PgVectorIndex)(nil)

// PgVectorIndex stores vector records in a pgvector table and ranks by
// cosine distance. Score is 1 - distance.
type PgVectorIndex struct {
	db *sql.DB
}

// NewPgVectorIndex creates the vector_records table for the given dimension
// if it does not exist yet.
func NewPgVectorIndex(ctx context.Context, db *sql.DB, dimension int) (*PgVectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_records (
			id          TEXT PRIMARY KEY,
			embedding   vector(%d) NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS vector_records_embedding_idx
			ON vector_records USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return nil, fmt.Errorf("prepare vector table: %w", err)
		}
	}
	return &PgVectorIndex{db: db}, nil
}

// Upsert writes one batch in a single transaction.
func (p *PgVectorIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO vector_records (id, embedding, metadata)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode metadata %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, pgvector.NewVector(r.Vector), string(meta)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (p *PgVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.ScoredRecord, error) {
	if topK <= 0 {
		topK = 5
	}
	const q = `
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM vector_records
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, q, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScoredRecord
	for rows.Next() {
		var (
			hit  models.ScoredRecord
			meta []byte
		)
		if err := rows.Scan(&hit.ID, &meta, &hit.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", hit.ID, err)
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

func (p *PgVectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM vector_records WHERE id = ANY($1)`, ids)
	return err
}
