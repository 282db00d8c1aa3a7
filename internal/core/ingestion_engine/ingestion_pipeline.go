package ingestion_engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/models"
)

const (
	defaultQueueSize  = 64
	defaultJobTimeout = 15 * time.Minute
)

// Coordinator owns the document ledger: it stores uploads, runs the
// chunk/embed/upsert pipeline for them on a worker pool and deletes them
// again. Work on one filename is serialized.
type Coordinator struct {
	ledger     core.LedgerClient
	objects    core.ObjectClient
	chunks     ChunkSource
	sync       *SyncEngine
	chunking   config.ChunkingConfig
	locks      *keyedLocks
	jobs       chan string
	jobTimeout time.Duration
	log        *slog.Logger
}

func NewCoordinator(ledger core.LedgerClient, objects core.ObjectClient, src ChunkSource, sync *SyncEngine, chunking config.ChunkingConfig) *Coordinator {
	return &Coordinator{
		ledger:     ledger,
		objects:    objects,
		chunks:     src,
		sync:       sync,
		chunking:   chunking,
		locks:      newKeyedLocks(),
		jobs:       make(chan string, defaultQueueSize),
		jobTimeout: defaultJobTimeout,
		log:        slog.With("component", "coordinator"),
	}
}

// Run processes queued documents with numWorkers workers until ctx is done.
func (c *Coordinator) Run(ctx context.Context, numWorkers int) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= numWorkers; w++ {
		w := w
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					c.log.Info("worker shutting down", "worker", w)
					return nil
				case docID := <-c.jobs:
					if err := c.ProcessOne(gctx, docID); err != nil {
						c.log.Error("document processing failed", "worker", w, "document_id", docID, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// Enqueue schedules a document id. It blocks while the queue is full.
func (c *Coordinator) Enqueue(ctx context.Context, docID string) error {
	select {
	case c.jobs <- docID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume re-enqueues documents a previous run left pending or processing.
func (c *Coordinator) Resume(ctx context.Context) (int, error) {
	docs, err := c.ledger.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if d.Status != models.StatusPending && d.Status != models.StatusProcessing {
			continue
		}
		if err := c.Enqueue(ctx, d.ID); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		c.log.Info("resumed unfinished documents", "count", n)
	}
	return n, nil
}

// Upload stores data under filename, records a pending ledger row and queues it.
func (c *Coordinator) Upload(ctx context.Context, filename string, data io.Reader, size int64) (*models.Document, error) {
	doc, err := c.register(ctx, filename, data, size)
	if err != nil {
		return nil, err
	}
	if err := c.Enqueue(ctx, doc.ID); err != nil {
		return doc, fmt.Errorf("enqueue %s: %w", doc.Filename, err)
	}
	return doc, nil
}

// IngestFile registers the local file at path and processes it before returning.
func (c *Coordinator) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	doc, err := c.register(ctx, filepath.Base(path), f, info.Size())
	if err != nil {
		return nil, err
	}
	if err := c.ProcessOne(ctx, doc.ID); err != nil {
		return nil, err
	}
	return c.ledger.GetDocumentByID(ctx, doc.ID)
}

func (c *Coordinator) register(ctx context.Context, filename string, data io.Reader, size int64) (*models.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: empty filename", core.ErrUnsupportedFormat)
	}
	format, err := chunker.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(filename)
	defer unlock()

	existing, err := c.ledger.GetDocumentByFilename(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", filename, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q is already ingested", core.ErrAlreadyExists, filename)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("documents/%s/%s", id, filename)
	contentType := contentTypeFor(filename)
	if _, err := c.objects.UploadFile(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	doc := &models.Document{
		ID:             id,
		Filename:       filename,
		Format:         format.String(),
		ContentType:    contentType,
		FileSize:       size,
		StorageKey:     key,
		Status:         models.StatusPending,
		ChunkSize:      c.chunking.ChunkSize,
		Overlap:        c.chunking.Overlap,
		EmbeddingModel: c.sync.ModelName(),
	}
	if err := c.ledger.CreateDocument(ctx, doc); err != nil {
		if derr := c.objects.DeleteFile(ctx, key); derr != nil {
			c.log.Warn("orphaned object after failed ledger insert", "key", key, "error", derr)
		}
		return nil, err
	}
	c.log.Info("document registered", "document_id", id, "filename", filename, "format", doc.Format, "size", size)
	return doc, nil
}

// ProcessOne chunks, embeds and indexes one registered document and records
// the outcome on its ledger row.
func (c *Coordinator) ProcessOne(ctx context.Context, docID string) error {
	proctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.jobTimeout)
	defer cancel()

	doc, err := c.ledger.GetDocumentByID(proctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, docID)
	}

	unlock := c.locks.Lock(doc.Filename)
	defer unlock()

	logCtx := c.log.With("document_id", doc.ID, "filename", doc.Filename)

	// The row may have been finished or deleted while this job waited on the
	// lock; only pending and processing rows are (re)indexed.
	doc, err = c.ledger.GetDocumentByID(proctx, docID)
	if err != nil {
		return fmt.Errorf("reload document %s: %w", docID, err)
	}
	if doc == nil {
		logCtx.Info("document removed before processing, skipping")
		return nil
	}
	if doc.Status != models.StatusPending && doc.Status != models.StatusProcessing {
		logCtx.Info("document already settled, skipping", "status", doc.Status)
		return nil
	}

	logCtx.Info("processing document")

	doc.Status = models.StatusProcessing
	doc.ErrorMessage = nil
	if err := c.ledger.SaveDocument(proctx, doc); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	res, committed, err := c.indexDocument(proctx, doc)
	if err != nil {
		return c.handleError(proctx, logCtx, doc, committed, err)
	}

	rows := vectorMetadataRows(doc, res.Chunks, c.sync.ModelName())
	if err := c.ledger.InsertVectorMetadata(proctx, rows); err != nil {
		return c.handleError(proctx, logCtx, doc, committed, fmt.Errorf("record vector metadata: %w", err))
	}

	now := time.Now().UTC()
	doc.Status = models.StatusCompleted
	doc.TotalChunks = len(res.Chunks)
	doc.TotalPages = res.Stats.Pages
	doc.TotalSlides = res.Stats.Slides
	doc.SheetNames = res.Stats.Sheets
	doc.EmbeddingModel = c.sync.ModelName()
	doc.ProcessedAt = &now
	if err := c.ledger.SaveDocument(proctx, doc); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	logCtx.Info("document processed", "chunks", doc.TotalChunks)
	return nil
}

// indexDocument fetches the stored object, chunks it and upserts its vectors.
// committed holds the ids already in the index when it fails.
func (c *Coordinator) indexDocument(ctx context.Context, doc *models.Document) (*chunker.Result, []string, error) {
	path, cleanup, err := c.fetch(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	res, err := c.chunks.Chunk(ctx, path, doc.Filename)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrNoContentExtracted, doc.Filename)
	}

	committed, err := c.sync.EmbedAndUpsert(ctx, res.Chunks)
	if err != nil {
		return nil, committed, err
	}
	return res, committed, nil
}

// handleError removes vectors a failed run left behind and marks the row failed.
func (c *Coordinator) handleError(ctx context.Context, logCtx *slog.Logger, doc *models.Document, committed []string, cause error) error {
	if len(committed) > 0 {
		if err := c.sync.DeleteIDs(ctx, committed); err != nil {
			logCtx.Error("compensating delete failed", "ids", len(committed), "error", err)
		} else {
			logCtx.Warn("removed partially indexed vectors", "ids", len(committed))
		}
	}

	msg := cause.Error()
	doc.Status = models.StatusFailed
	doc.ErrorMessage = &msg
	doc.ProcessedAt = nil
	if err := c.ledger.SaveDocument(ctx, doc); err != nil {
		logCtx.Error("failed to record failure", "error", err)
	}
	logCtx.Error("document processing failed", "error", cause)
	return cause
}

// Delete removes a document's vectors, ledger rows and stored object.
func (c *Coordinator) Delete(ctx context.Context, filename string) error {
	unlock := c.locks.Lock(filename)
	defer unlock()

	doc, err := c.ledger.GetDocumentByFilename(ctx, filename)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", filename, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: %q", core.ErrNotFound, filename)
	}
	logCtx := c.log.With("document_id", doc.ID, "filename", doc.Filename)

	ids, err := c.ledger.ListVectorIDs(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("list vector ids: %w", err)
	}
	if len(ids) > 0 {
		if err := c.sync.DeleteIDs(ctx, ids); err != nil {
			return err
		}
	} else if err := c.deleteRecomputed(ctx, logCtx, doc); err != nil {
		return err
	}

	if err := c.ledger.DeleteVectorMetadata(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete vector metadata: %w", err)
	}
	if err := c.ledger.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := c.objects.DeleteFile(ctx, doc.StorageKey); err != nil {
		logCtx.Warn("stored object not removed", "key", doc.StorageKey, "error", err)
	}
	logCtx.Info("document deleted", "vector_ids", len(ids))
	return nil
}

// deleteRecomputed re-chunks the stored object to find the ids to delete.
// Only a completed document must succeed; others may never have produced chunks.
func (c *Coordinator) deleteRecomputed(ctx context.Context, logCtx *slog.Logger, doc *models.Document) error {
	path, cleanup, err := c.fetch(ctx, doc)
	if err == nil {
		defer cleanup()
		var n int
		n, err = c.sync.DeleteVectorsFor(ctx, path, doc.Filename)
		if err == nil {
			logCtx.Info("deleted recomputed vector ids", "count", n)
			return nil
		}
	}
	if doc.Status == models.StatusCompleted {
		return fmt.Errorf("recompute vector ids for %s: %w", doc.Filename, err)
	}
	logCtx.Warn("skipping vector recomputation", "status", doc.Status, "error", err)
	return nil
}

func (c *Coordinator) List(ctx context.Context) ([]models.Document, error) {
	return c.ledger.ListDocuments(ctx)
}

func (c *Coordinator) Get(ctx context.Context, filename string) (*models.Document, error) {
	doc, err := c.ledger.GetDocumentByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrNotFound, filename)
	}
	return doc, nil
}

// fetch copies the stored object into a fresh temp dir under its ledger name.
func (c *Coordinator) fetch(ctx context.Context, doc *models.Document) (string, func(), error) {
	data, err := c.objects.GetFile(ctx, doc.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", doc.StorageKey, err)
	}
	dir, err := os.MkdirTemp("", "officerag-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func vectorMetadataRows(doc *models.Document, chunks []chunker.Chunk, model string) []models.VectorMetadata {
	rows := make([]models.VectorMetadata, 0, len(chunks))
	for i, ch := range chunks {
		row := models.VectorMetadata{
			VectorID:       chunker.VectorID(doc.Filename, i),
			DocumentID:     doc.ID,
			Filename:       doc.Filename,
			ChunkIndex:     i,
			ChunkLength:    ch.Len(),
			EmbeddingModel: model,
		}
		switch loc := ch.Locator.(type) {
		case chunker.PageLocator:
			row.Page = &loc.Page
			row.HasImages = loc.HasImages
			row.ImageCount = loc.ImageCount
		case chunker.SlideLocator:
			row.Slide = &loc.Slide
			row.HasImages = loc.HasImages
			row.ImageCount = loc.ImageCount
		case chunker.SheetLocator:
			row.Sheet = &loc.Sheet
			row.StartRow = &loc.StartRow
			row.EndRow = &loc.EndRow
		}
		rows = append(rows, row)
	}
	return rows
}

func contentTypeFor(filename string) string {
	if ct := docconv.MimeTypeByExtension(filename); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
