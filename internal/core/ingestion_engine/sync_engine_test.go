package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/models"
)

func manyChunks(filename string, n int) []chunker.Chunk {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	return textChunks(filename, texts...)
}

func TestVectorIDs(t *testing.T) {
	assert.Equal(t, []string{"report.pdf_0", "report.pdf_1", "report.pdf_2"}, VectorIDs("report.pdf", 3))
	assert.Empty(t, VectorIDs("report.pdf", 0))
}

func TestEmbedAndUpsert_InvalidBatch(t *testing.T) {
	s := NewSyncEngine(&fakeEmbedder{}, newFlakyIndex(), nil, 100, true)
	ctx := context.Background()

	_, err := s.EmbedAndUpsert(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidBatch)

	mixed := append(textChunks("a.pdf", "one"), textChunks("b.pdf", "two")...)
	_, err = s.EmbedAndUpsert(ctx, mixed)
	assert.ErrorIs(t, err, core.ErrInvalidBatch)

	_, err = s.EmbedAndUpsert(ctx, textChunks("", "orphan"))
	assert.ErrorIs(t, err, core.ErrInvalidBatch)
}

func TestEmbedAndUpsert_BatchesInOrder(t *testing.T) {
	idx := newFlakyIndex()
	s := NewSyncEngine(&fakeEmbedder{}, idx, nil, 100, true)

	committed, err := s.EmbedAndUpsert(context.Background(), manyChunks("report.pdf", 250))
	require.NoError(t, err)

	assert.Equal(t, 3, idx.upserts)
	assert.Equal(t, VectorIDs("report.pdf", 250), committed)
	assert.Equal(t, committed, idx.IDs())

	hits, err := idx.Query(context.Background(), []float32{float32(len("chunk 7")), 0, 1}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "report.pdf", hits[0].Metadata["source"])
	assert.Contains(t, hits[0].Metadata, "text")
	assert.Contains(t, hits[0].Metadata, "page")
}

func TestEmbedAndUpsert_WithoutStoredText(t *testing.T) {
	idx := newFlakyIndex()
	s := NewSyncEngine(&fakeEmbedder{}, idx, nil, 10, false)

	_, err := s.EmbedAndUpsert(context.Background(), textChunks("deck.pptx", "hello"))
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), []float32{5, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.NotContains(t, hits[0].Metadata, "text")
}

func TestEmbedAndUpsert_PartialFailureReportsCommittedPrefix(t *testing.T) {
	idx := newFlakyIndex()
	idx.failUpsert = 2
	s := NewSyncEngine(&fakeEmbedder{}, idx, nil, 100, true)

	committed, err := s.EmbedAndUpsert(context.Background(), manyChunks("big.pdf", 250))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIndexUpsertFailure)
	assert.ErrorIs(t, err, errIndexDown)

	assert.Equal(t, VectorIDs("big.pdf", 100), committed)
	assert.Equal(t, committed, idx.IDs(), "earlier batches stay in the index")
	assert.Equal(t, 2, idx.upserts, "later batches are not attempted")
}

func TestEmbedAndUpsert_EmbeddingFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")

	idx := newFlakyIndex()
	_, err := NewSyncEngine(&fakeEmbedder{err: boom}, idx, nil, 100, true).
		EmbedAndUpsert(ctx, textChunks("a.pdf", "x", "y"))
	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)
	assert.ErrorIs(t, err, boom)

	_, err = NewSyncEngine(&fakeEmbedder{short: true}, idx, nil, 100, true).
		EmbedAndUpsert(ctx, textChunks("a.pdf", "x", "y"))
	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)

	assert.Zero(t, idx.upserts)
	assert.Empty(t, idx.IDs())
}

func TestDeleteVectorsFor_RemovesExactlyRecomputedIDs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	path := h.writeFile(t, "report.pdf", makeText(2200))

	res, err := newTestDispatcher(1000, 100).Chunk(ctx, path, "report.pdf")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	_, err = h.sync.EmbedAndUpsert(ctx, res.Chunks)
	require.NoError(t, err)

	// neighbours that share the prefix must survive
	require.NoError(t, h.index.Memory.Upsert(ctx, []models.VectorRecord{
		{ID: "report.pdf_3", Vector: []float32{1, 1, 1}},
		{ID: "other.pdf_0", Vector: []float32{1, 1, 1}},
	}))

	n, err := h.sync.DeleteVectorsFor(ctx, path, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, h.index.deleted, 1)
	assert.Equal(t, []string{"report.pdf_0", "report.pdf_1", "report.pdf_2"}, h.index.deleted[0])
	assert.ElementsMatch(t, []string{"report.pdf_3", "other.pdf_0"}, h.index.IDs())
}

func TestDeleteVectorsFor_NothingToDeleteIsSuccess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	path := h.writeFile(t, "blank.pdf", "   \n  ")

	n, err := h.sync.DeleteVectorsFor(ctx, path, "blank.pdf")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, h.index.deleted)

	// deleting ids that are not in the index is also fine
	require.NoError(t, h.sync.DeleteIDs(ctx, []string{"ghost.pdf_0"}))
	require.NoError(t, h.sync.DeleteIDs(ctx, nil))
}

func TestDeleteIDs_IndexFailure(t *testing.T) {
	idx := newFlakyIndex()
	idx.failDeletes = true
	s := NewSyncEngine(&fakeEmbedder{}, idx, nil, 100, true)

	err := s.DeleteIDs(context.Background(), []string{"a.pdf_0"})
	assert.ErrorIs(t, err, core.ErrIndexDeleteFailure)
}
