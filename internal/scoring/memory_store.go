package scoring

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	byTx    map[string]*ScoreRecord
	ordered []string // transaction IDs in scoring order
}

// NewMemoryStore creates an in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTx: make(map[string]*ScoreRecord),
	}
}

func (s *MemoryStore) Record(ctx context.Context, rec *ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTx[rec.TransactionID]; !exists {
		s.ordered = append(s.ordered, rec.TransactionID)
	}
	cp := copyRecord(rec)
	s.byTx[rec.TransactionID] = cp
	return nil
}

func (s *MemoryStore) GetByTransaction(ctx context.Context, txID string) (*ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byTx[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ordered) == 0 {
		return nil, nil
	}

	// Most recent first, up to limit
	start := len(s.ordered) - limit
	if start < 0 {
		start = 0
	}

	result := make([]*ScoreRecord, 0, len(s.ordered)-start)
	for i := len(s.ordered) - 1; i >= start; i-- {
		result = append(result, copyRecord(s.byTx[s.ordered[i]]))
	}
	return result, nil
}

func (s *MemoryStore) MarkResolved(ctx context.Context, txID string, fraud bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byTx[txID]
	if !ok {
		return ErrNotFound
	}
	f := fraud
	t := at
	rec.IsFraud = &f
	rec.ResolvedAt = &t
	return nil
}

func copyRecord(rec *ScoreRecord) *ScoreRecord {
	cp := *rec
	if rec.IsFraud != nil {
		f := *rec.IsFraud
		cp.IsFraud = &f
	}
	if rec.ResolvedAt != nil {
		t := *rec.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
