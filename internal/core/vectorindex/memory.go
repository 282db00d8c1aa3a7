package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/models"
)

var _ core.VectorIndex = (*Memory)(nil)

// Memory is an in-process vector index using brute-force cosine similarity.
// Ties keep insertion order.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	records   map[string]models.VectorRecord
}

// NewMemory returns an empty index. dimension 0 accepts any vector length
// and fixes it on first upsert.
func NewMemory(dimension int) *Memory {
	return &Memory{dimension: dimension, records: make(map[string]models.VectorRecord)}
}

func (m *Memory) Upsert(_ context.Context, records []models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return errors.New("record without id")
		}
		if m.dimension == 0 {
			m.dimension = len(r.Vector)
		}
		if len(r.Vector) != m.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: got %d want %d", r.ID, len(r.Vector), m.dimension)
		}
	}
	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *Memory) Query(_ context.Context, vector []float32, topK int) ([]models.ScoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}
	hits := make([]models.ScoredRecord, 0, len(m.order))
	for _, id := range m.order {
		r := m.records[id]
		hits = append(hits, models.ScoredRecord{ID: id, Score: cosine(r.Vector, vector), Metadata: r.Metadata})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *Memory) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			drop[id] = true
			delete(m.records, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

// IDs returns the stored ids in insertion order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
