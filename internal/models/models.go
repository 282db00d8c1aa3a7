package models

import (
	"time"
)

// Document lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is one ingested file in the ledger. Filename is the unique key.
type Document struct {
	ID             string     `db:"id" json:"id"`
	Filename       string     `db:"filename" json:"filename"`
	Format         string     `db:"format" json:"format"`
	ContentType    string     `db:"content_type" json:"content_type"`
	FileSize       int64      `db:"file_size" json:"file_size"`
	StorageKey     string     `db:"storage_key" json:"storage_key"`
	Status         string     `db:"status" json:"status"` // pending | processing | completed | failed
	TotalChunks    int        `db:"total_chunks" json:"total_chunks"`
	TotalPages     *int       `db:"total_pages" json:"total_pages"`
	TotalSlides    *int       `db:"total_slides" json:"total_slides"`
	SheetNames     []string   `db:"sheet_names" json:"sheet_names"`
	ErrorMessage   *string    `db:"error_message" json:"error_message"`
	ChunkSize      int        `db:"chunk_size" json:"chunk_size"`
	Overlap        int        `db:"overlap" json:"overlap"`
	EmbeddingModel string     `db:"embedding_model" json:"embedding_model"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at"`
}

// VectorMetadata records one vector id written to the index for a document.
type VectorMetadata struct {
	VectorID       string    `db:"vector_id" json:"vector_id"`
	DocumentID     string    `db:"document_id" json:"document_id"`
	Filename       string    `db:"filename" json:"filename"`
	ChunkIndex     int       `db:"chunk_index" json:"chunk_index"`
	Page           *int      `db:"page" json:"page"`
	Slide          *int      `db:"slide" json:"slide"`
	Sheet          *string   `db:"sheet" json:"sheet"`
	StartRow       *int      `db:"start_row" json:"start_row"`
	EndRow         *int      `db:"end_row" json:"end_row"`
	ChunkLength    int       `db:"chunk_length" json:"chunk_length"`
	HasImages      bool      `db:"has_images" json:"has_images"`
	ImageCount     int       `db:"image_count" json:"image_count"`
	EmbeddingModel string    `db:"embedding_model" json:"embedding_model"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// VectorRecord is the unit stored in the vector index.
type VectorRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"-"`
	Metadata map[string]any `json:"metadata"`
}

// ScoredRecord is one raw hit returned by the vector index.
type ScoredRecord struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Match is a retrieval hit shaped for prompt assembly. Locator fields the
// chunk does not carry stay nil and serialize as null.
type Match struct {
	ID       string  `json:"id"`
	Text     *string `json:"text"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Page     *int    `json:"page"`
	Slide    *int    `json:"slide"`
	Sheet    *string `json:"sheet"`
	StartRow *int    `json:"start_row"`
	EndRow   *int    `json:"end_row"`
}

// Answer is the query-path result: generated text plus the matches it was built from.
type Answer struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	References []Match `json:"references"`
}
