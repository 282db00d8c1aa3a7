package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/officerag/internal/models"
)

// DocumentStore is the document service surface the handlers need.
type DocumentStore interface {
	Upload(ctx context.Context, filename string, data io.Reader, size int64) (*models.Document, error)
	List(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, filename string) (*models.Document, error)
	Delete(ctx context.Context, filename string) error
}

type DocumentHandler struct {
	docs         DocumentStore
	maxMultipart int64
}

func NewDocumentHandler(docs DocumentStore, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &DocumentHandler{docs: docs, maxMultipart: maxUploadBytes}
}

// UploadDocument stores the multipart "file" field and queues it for
// ingestion. The response carries the pending ledger row.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxMultipart+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > h.maxMultipart {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	doc, err := h.docs.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": docs})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), filenameParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument removes the file's vectors, stored object and ledger row.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if err := h.docs.Delete(r.Context(), name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "deleted " + name,
	})
}

// filenameParam returns the {filename} segment with percent-escapes decoded.
func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
