package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

var _ core.LedgerClient = (*MemoryLedger)(nil)

// MemoryLedger keeps the ledger in process. Used by tests and throwaway runs.
type MemoryLedger struct {
	mu      sync.RWMutex
	docs    map[string]*models.Document // keyed by id
	byName  map[string]string           // filename -> id
	vectors map[string][]models.VectorMetadata
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		docs:    make(map[string]*models.Document),
		byName:  make(map[string]string),
		vectors: make(map[string][]models.VectorMetadata),
	}
}

func (m *MemoryLedger) Close() error { return nil }

func (m *MemoryLedger) CreateDocument(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[doc.Filename]; ok {
		return fmt.Errorf("%w: document %q", core.ErrAlreadyExists, doc.Filename)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	m.docs[doc.ID] = copyDocument(doc)
	m.byName[doc.Filename] = doc.ID
	return nil
}

func (m *MemoryLedger) SaveDocument(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.docs[doc.ID]
	if !ok {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, doc.ID)
	}
	doc.UpdatedAt = time.Now().UTC()
	doc.CreatedAt = cur.CreatedAt
	doc.Filename = cur.Filename
	m.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (m *MemoryLedger) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return copyDocument(d), nil
}

func (m *MemoryLedger) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	m.mu.RLock()
	id, ok := m.byName[filename]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetDocumentByID(ctx, id)
}

// ListDocuments returns newest first, matching the SQL ledgers.
func (m *MemoryLedger) ListDocuments(_ context.Context) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *copyDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Filename < out[j].Filename
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryLedger) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	delete(m.byName, d.Filename)
	delete(m.docs, id)
	delete(m.vectors, id)
	return nil
}

// InsertVectorMetadata replaces rows with the same vector id.
func (m *MemoryLedger) InsertVectorMetadata(_ context.Context, rows []models.VectorMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, r := range rows {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		list := m.vectors[r.DocumentID]
		replaced := false
		for i := range list {
			if list[i].VectorID == r.VectorID {
				list[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, r)
		}
		m.vectors[r.DocumentID] = list
	}
	return nil
}

func (m *MemoryLedger) ListVectorIDs(_ context.Context, documentID string) ([]string, error) {
	m.mu.RLock()
	rows := append([]models.VectorMetadata(nil), m.vectors[documentID]...)
	m.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ChunkIndex < rows[j].ChunkIndex })
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.VectorID)
	}
	return ids, nil
}

func (m *MemoryLedger) DeleteVectorMetadata(_ context.Context, documentID string) error {
	m.mu.Lock()
	delete(m.vectors, documentID)
	m.mu.Unlock()
	return nil
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	if d.SheetNames != nil {
		c.SheetNames = append([]string(nil), d.SheetNames...)
	}
	return &c
}
