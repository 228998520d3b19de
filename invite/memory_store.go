package invite

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process [Store] for tests and single-node
// embedding. MarkUsed performs the conditional used-at transition under
// the store mutex, giving the same exactly-once guarantee a database
// provides with an update-where-unused statement.
type MemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]Record),
	}
}

// Create implements [Store].
func (s *MemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// FindByTokenHash implements [Store].
func (s *MemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.TokenHash == tokenHash {
			out := record
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

// FindByAccountID implements [Store].
func (s *MemoryStore) FindByAccountID(_ context.Context, accountID uuid.UUID) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, record := range s.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkUsed implements [Store].
func (s *MemoryStore) MarkUsed(_ context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.UsedAt != nil {
		return false, nil
	}
	stamp := usedAt
	record.UsedAt = &stamp
	s.records[id] = record
	return true, nil
}

// Delete implements [Store].
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
