package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/models"
)

// ChunkSource turns a stored file into its chunk sequence. The same source
// must be used for ingestion and for recomputing ids on delete.
type ChunkSource interface {
	Chunk(ctx context.Context, path, filename string) (*chunker.Result, error)
}

// SyncEngine embeds chunk batches and keeps the vector index in step with them.
type SyncEngine struct {
	embedder  core.EmbeddingProvider
	index     core.VectorIndex
	chunks    ChunkSource
	batchSize int
	storeText bool
	log       *slog.Logger
}

func NewSyncEngine(emb core.EmbeddingProvider, idx core.VectorIndex, src ChunkSource, batchSize int, storeText bool) *SyncEngine {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncEngine{
		embedder:  emb,
		index:     idx,
		chunks:    src,
		batchSize: batchSize,
		storeText: storeText,
		log:       slog.With("component", "sync_engine"),
	}
}

// VectorIDs returns the ids of the first n chunks of filename.
func VectorIDs(filename string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = chunker.VectorID(filename, i)
	}
	return ids
}

// EmbedAndUpsert embeds every chunk of one file and upserts the vectors in
// sequential batches. The i-th chunk gets id "<filename>_<i>".
//
// A failed batch stops the run. Batches written before it stay in the index
// and their ids are returned alongside ErrIndexUpsertFailure.
func (s *SyncEngine) EmbedAndUpsert(ctx context.Context, chunks []chunker.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", core.ErrInvalidBatch)
	}
	filename := chunks[0].Filename
	if filename == "" {
		return nil, fmt.Errorf("%w: chunk has no filename", core.ErrInvalidBatch)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Filename != filename {
			return nil, fmt.Errorf("%w: mixed files %q and %q", core.ErrInvalidBatch, filename, c.Filename)
		}
		texts[i] = c.Text
	}

	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		if errors.Is(err, core.ErrEmbeddingFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", core.ErrEmbeddingFailure, len(vecs), len(chunks))
	}

	ids := VectorIDs(filename, len(chunks))
	committed := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))

		records := make([]models.VectorRecord, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			c.Index = i
			records = append(records, models.VectorRecord{
				ID:       ids[i],
				Vector:   vecs[i],
				Metadata: c.Metadata(s.storeText),
			})
		}

		if err := s.index.Upsert(ctx, records); err != nil {
			s.log.Error("batch upsert failed",
				"filename", filename, "batch_start", start, "batch_end", end-1, "committed", len(committed), "error", err)
			return committed, fmt.Errorf("%w: batch %d-%d of %s: %w", core.ErrIndexUpsertFailure, start, end-1, filename, err)
		}
		committed = append(committed, ids[start:end]...)
	}

	s.log.Info("vectors upserted", "filename", filename, "count", len(committed))
	return committed, nil
}

// DeleteVectorsFor re-chunks the file at path and deletes exactly the ids that
// chunking derives. It returns how many ids were deleted. An empty derivation
// is logged and treated as success.
func (s *SyncEngine) DeleteVectorsFor(ctx context.Context, path, filename string) (int, error) {
	res, err := s.chunks.Chunk(ctx, path, filename)
	if err != nil {
		return 0, err
	}
	if len(res.Chunks) == 0 {
		s.log.Warn("nothing to delete", "filename", filename, "reason", core.ErrNothingToDelete)
		return 0, nil
	}

	ids := VectorIDs(filename, len(res.Chunks))
	if err := s.DeleteIDs(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteIDs removes the given ids from the index. Missing ids are not an error.
func (s *SyncEngine) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("%w: %d ids: %w", core.ErrIndexDeleteFailure, len(ids), err)
	}
	s.log.Info("vectors deleted", "count", len(ids))
	return nil
}

// ModelName is the embedding model recorded on ledger rows.
func (s *SyncEngine) ModelName() string { return s.embedder.ModelName() }
