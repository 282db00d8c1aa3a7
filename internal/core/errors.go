package core

import "errors"

// Pipeline failures. Everything except ErrOCRFailure aborts the current file.
var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrConversionFailure  = errors.New("conversion failed")
	ErrExtractionFailure  = errors.New("extraction failed")
	ErrOCRFailure         = errors.New("ocr failed")
	ErrNoContentExtracted = errors.New("no content extracted")
	ErrEmbeddingFailure   = errors.New("embedding failed")
	ErrIndexUpsertFailure = errors.New("vector index upsert failed")
	ErrIndexDeleteFailure = errors.New("vector index delete failed")
	ErrInvalidBatch       = errors.New("invalid chunk batch")
)

// ErrNothingToDelete marks a delete whose recomputed id set was empty.
// It is logged and never returned.
var ErrNothingToDelete = errors.New("recomputation produced no vector ids")

// Ledger and service errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoMatches     = errors.New("no relevant content")
	ErrEmptyQuery    = errors.New("empty query")
)
