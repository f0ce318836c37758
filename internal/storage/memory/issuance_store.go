package memory

import (
	"context"
	"sort"
	"sync"

	"sss-shared/internal/domain"
	"sss-shared/internal/storage"
)

// IssuanceStore is an in-memory implementation of storage.IssuanceStore.
type IssuanceStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Issuance
	byMint map[string][]*domain.Issuance
}

// NewIssuanceStore creates a new in-memory issuance journal.
func NewIssuanceStore() *IssuanceStore {
	return &IssuanceStore{
		byID:   make(map[string]*domain.Issuance),
		byMint: make(map[string][]*domain.Issuance),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if the ID exists.
func (s *IssuanceStore) Insert(_ context.Context, rec *domain.Issuance) error {
	if err := storage.ValidateIssuance(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *rec
	s.byID[rec.ID] = &recCopy
	s.byMint[rec.Mint] = append(s.byMint[rec.Mint], &recCopy)
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *IssuanceStore) GetByID(_ context.Context, id string) (*domain.Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *rec
	return &recCopy, nil
}

// GetByMint retrieves all records for a mint, ordered by created_at ASC.
func (s *IssuanceStore) GetByMint(_ context.Context, mint string) ([]*domain.Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedCopies(s.byMint[mint]), nil
}

// GetByTimeRange retrieves records created within [start, end] (inclusive).
func (s *IssuanceStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Issuance
	for _, rec := range s.byID {
		if rec.CreatedAt >= start && rec.CreatedAt <= end {
			matched = append(matched, rec)
		}
	}
	return sortedCopies(matched), nil
}

// sortedCopies returns copies ordered by created_at, then ID for stability.
func sortedCopies(recs []*domain.Issuance) []*domain.Issuance {
	result := make([]*domain.Issuance, len(recs))
	for i, rec := range recs {
		recCopy := *rec
		result[i] = &recCopy
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.IssuanceStore = (*IssuanceStore)(nil)
