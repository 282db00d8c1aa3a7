package ingestion_engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	db "github.com/markdave123-py/officerag/internal/core/database"
	objectclient "github.com/markdave123-py/officerag/internal/core/object-client"
	"github.com/markdave123-py/officerag/internal/core/ocr"
	"github.com/markdave123-py/officerag/internal/core/vectorindex"
	"github.com/markdave123-py/officerag/internal/models"
)

// fakeEmbedder derives a small deterministic vector from each text.
type fakeEmbedder struct {
	err   error
	short bool
	calls int
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, []float32{float32(len(t)), float32(strings.Count(t, "a")), 1})
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

// flakyIndex wraps the memory index and fails chosen upsert calls.
type flakyIndex struct {
	*vectorindex.Memory
	mu          sync.Mutex
	upserts     int
	failUpsert  int // 1-based call number, 0 never fails
	failDeletes bool
	deleted     [][]string
}

func newFlakyIndex() *flakyIndex {
	return &flakyIndex{Memory: vectorindex.NewMemory(0)}
}

var errIndexDown = errors.New("index unavailable")

func (f *flakyIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	f.mu.Lock()
	f.upserts++
	fail := f.upserts == f.failUpsert
	f.mu.Unlock()
	if fail {
		return errIndexDown
	}
	return f.Memory.Upsert(ctx, records)
}

func (f *flakyIndex) Delete(ctx context.Context, ids []string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, append([]string(nil), ids...))
	fail := f.failDeletes
	f.mu.Unlock()
	if fail {
		return errIndexDown
	}
	return f.Memory.Delete(ctx, ids)
}

// textPages treats a file as plain text, one page per form feed.
type textPages struct{}

func (textPages) Pages(_ context.Context, path string) ([]chunker.Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pages []chunker.Page
	for i, p := range strings.Split(string(b), "\f") {
		pages = append(pages, chunker.Page{Number: i + 1, Text: p})
	}
	return pages, nil
}

func newTestDispatcher(size, overlap int) *chunker.Dispatcher {
	o := ocr.NewAdapter(ocr.NopEngine{})
	return chunker.NewDispatcher(
		chunker.NewPDFChunker(textPages{}, o, size, overlap),
		chunker.NewSpreadsheetChunker(5),
		chunker.NewPresentationChunker(o, size, overlap),
		nil,
	)
}

type harness struct {
	ledger  *db.MemoryLedger
	objects *objectclient.LocalClient
	index   *flakyIndex
	embed   *fakeEmbedder
	sync    *SyncEngine
	coord   *Coordinator
	dir     string
}

func newHarness(t *testing.T, batchSize int) *harness {
	t.Helper()
	objects, err := objectclient.NewLocalClient(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		ledger:  db.NewMemoryLedger(),
		objects: objects,
		index:   newFlakyIndex(),
		embed:   &fakeEmbedder{},
		dir:     t.TempDir(),
	}
	src := newTestDispatcher(1000, 100)
	h.sync = NewSyncEngine(h.embed, h.index, src, batchSize, true)
	h.coord = NewCoordinator(h.ledger, h.objects, src, h.sync, config.ChunkingConfig{ChunkSize: 1000, Overlap: 100})
	return h
}

// writeFile creates name under the harness dir and returns its path.
func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func textChunks(filename string, texts ...string) []chunker.Chunk {
	out := make([]chunker.Chunk, len(texts))
	for i, tx := range texts {
		out[i] = chunker.Chunk{Filename: filename, Index: i, Text: tx, Locator: chunker.PageLocator{Page: 1}}
	}
	return out
}

var _ core.EmbeddingProvider = (*fakeEmbedder)(nil)
var _ core.VectorIndex = (*flakyIndex)(nil)
