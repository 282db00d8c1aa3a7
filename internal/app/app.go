package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/core/converter"
	db "github.com/markdave123-py/officerag/internal/core/database"
	"github.com/markdave123-py/officerag/internal/core/ingestion_engine"
	"github.com/markdave123-py/officerag/internal/core/llm"
	objectclient "github.com/markdave123-py/officerag/internal/core/object-client"
	"github.com/markdave123-py/officerag/internal/core/ocr"
	"github.com/markdave123-py/officerag/internal/core/retrieval"
	"github.com/markdave123-py/officerag/internal/core/vectorindex"
	"github.com/markdave123-py/officerag/internal/services"
)

// App holds every wired component. The HTTP server and the CLI share it.
type App struct {
	Config      *config.Config
	Ledger      core.LedgerClient
	Objects     core.ObjectClient
	Index       core.VectorIndex
	Sync        *ingestion_engine.SyncEngine
	Coordinator *ingestion_engine.Coordinator
	Retrieval   *retrieval.Engine
	Documents   *services.DocumentService
	Queries     *services.QueryService
	Server      *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (a *App, err error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var pg *db.DatabaseClient
	if cfg.LedgerBackend == config.BackendPostgres || cfg.VectorBackend == config.BackendPgvector {
		pg, err = db.NewDatabaseClient(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		slog.Info("database initialized and ready")
	}

	switch cfg.LedgerBackend {
	case config.BackendSQLite:
		ledger, err := db.NewSQLiteLedger(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ledger.Close)
		a.Ledger = ledger
	default:
		a.Ledger = pg
	}

	switch cfg.VectorBackend {
	case config.BackendMemory:
		a.Index = vectorindex.NewMemory(cfg.EmbedDim)
		slog.Warn("memory vector index in use, vectors are lost on restart")
	default:
		a.Index, err = db.NewPgVectorIndex(appCtx, pg.DB(), cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.StorageBackend {
	case config.BackendLocal:
		a.Objects, err = objectclient.NewLocalClient(cfg.UploadDir)
	default:
		a.Objects, err = objectclient.NewS3Client(appCtx, cfg)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("object client initialized and ready", "backend", cfg.StorageBackend)

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedRPS)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	a.closers = append(a.closers, embedder.Close)

	generator, err := a.newGenerator(appCtx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := a.newDispatcher(cfg)

	a.Sync = ingestion_engine.NewSyncEngine(embedder, a.Index, dispatcher, cfg.Chunking.BatchSize, cfg.Chunking.StoreChunkText)
	a.Coordinator = ingestion_engine.NewCoordinator(a.Ledger, a.Objects, dispatcher, a.Sync, cfg.Chunking)
	a.Retrieval = retrieval.NewEngine(embedder, a.Index, cfg.DefaultTopK)
	a.Documents = services.NewDocumentService(a.Coordinator)
	a.Queries = services.NewQueryService(a.Retrieval, generator)
	a.Server = NewServer(cfg, a.Documents, a.Queries, embedder.ModelName())

	return a, nil
}

func (a *App) newGenerator(ctx context.Context, cfg *config.Config) (core.LLMProvider, error) {
	if cfg.GenBackend == config.BackendOllama {
		return llm.NewOllamaLLM(cfg.OllamaURL, cfg.OllamaModel), nil
	}
	gen, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the generator: %w", err)
	}
	a.closers = append(a.closers, gen.Close)
	return gen, nil
}

// newDispatcher builds the format chunkers. OCR falls back to a no-op engine
// when disabled or when Tesseract cannot start, so image text is skipped
// rather than fatal. Images are still extracted and counted either way.
func (a *App) newDispatcher(cfg *config.Config) *chunker.Dispatcher {
	var engine core.OCREngine = ocr.NopEngine{}
	if cfg.OCREnabled {
		tess, err := ocr.NewTesseractEngine(cfg.OCRLanguage)
		if err != nil {
			slog.Warn("ocr disabled", "error", err)
		} else {
			a.closers = append(a.closers, tess.Close)
			engine = tess
		}
	}
	reader := ocr.NewAdapter(engine)
	c := cfg.Chunking

	return chunker.NewDispatcher(
		chunker.NewPDFChunker(chunker.NewFileSource(), reader, c.ChunkSize, c.Overlap),
		chunker.NewSpreadsheetChunker(c.RowsPerChunk),
		chunker.NewPresentationChunker(reader, c.SlideChunkSize, c.SlideOverlap),
		converter.NewLibreOffice(cfg.SofficePath, cfg.ConvertTimeout),
	)
}

// Close releases components in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
