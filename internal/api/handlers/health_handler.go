package handlers

import (
	"net/http"

	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/core/chunker"
)

const (
	serviceName = "officerag"
	apiVersion  = "v1"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type HealthHandler struct {
	cfg            *config.Config
	embeddingModel string
}

func NewHealthHandler(cfg *config.Config, embeddingModel string) *HealthHandler {
	return &HealthHandler{cfg: cfg, embeddingModel: embeddingModel}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"service":     serviceName,
		"version":     Version,
		"api_version": apiVersion,
	})
}

// Info reports the settings that shape ingestion and retrieval.
func (h *HealthHandler) Info(w http.ResponseWriter, _ *http.Request) {
	c := h.cfg
	writeJSON(w, http.StatusOK, map[string]any{
		"project":              serviceName,
		"version":              Version,
		"supported_extensions": chunker.SupportedExtensions,
		"max_file_size_mb":     c.MaxUploadMB,
		"embedding_model":      h.embeddingModel,
		"generation_backend":   c.GenBackend,
		"generation_model":     generationModel(c),
		"ledger_backend":       c.LedgerBackend,
		"vector_backend":       c.VectorBackend,
		"storage_backend":      c.StorageBackend,
		"ocr_enabled":          c.OCREnabled,
		"default_top_k":        c.DefaultTopK,
		"chunking":             c.Chunking,
	})
}

func generationModel(c *config.Config) string {
	if c.GenBackend == config.BackendOllama {
		return c.OllamaModel
	}
	return c.GenModel
}
