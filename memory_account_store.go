package authkit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryAccountStore is an in-memory [AccountStore] used in tests and
// example wiring. It enforces the same username uniqueness contract a
// database-backed store must provide.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]AccountRecord
	byName   map[string]uuid.UUID
}

// NewMemoryAccountStore describes the newmemoryaccountstore operation and its observable behavior.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[uuid.UUID]AccountRecord),
		byName:   make(map[string]uuid.UUID),
	}
}

// FindByID implements [AccountStore].
func (s *MemoryAccountStore) FindByID(_ context.Context, id uuid.UUID) (*AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &record, nil
}

// FindByUsername implements [AccountStore].
func (s *MemoryAccountStore) FindByUsername(_ context.Context, username string) (*AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	record := s.accounts[id]
	return &record, nil
}

// FindByPublicCode implements [AccountStore].
func (s *MemoryAccountStore) FindByPublicCode(_ context.Context, publicCode string) (*AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.accounts {
		if record.PublicCode == publicCode {
			out := record
			return &out, nil
		}
	}
	return nil, ErrAccountNotFound
}

// Create implements [AccountStore]. A username already held by another
// account fails with [ErrUsernameUnavailable].
func (s *MemoryAccountStore) Create(_ context.Context, record AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[record.Username]; taken {
		return ErrUsernameUnavailable
	}

	s.accounts[record.ID] = record
	s.byName[record.Username] = record.ID
	return nil
}

// Update implements [AccountStore]. Username changes respect the same
// uniqueness constraint as Create.
func (s *MemoryAccountStore) Update(_ context.Context, record AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[record.ID]
	if !ok {
		return ErrAccountNotFound
	}

	if record.Username != current.Username {
		if owner, taken := s.byName[record.Username]; taken && owner != record.ID {
			return ErrUsernameUnavailable
		}
		delete(s.byName, current.Username)
		s.byName[record.Username] = record.ID
	}

	s.accounts[record.ID] = record
	return nil
}

// Delete implements [AccountStore].
func (s *MemoryAccountStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	delete(s.byName, record.Username)
	delete(s.accounts, id)
	return nil
}

// List implements [AccountStore]. Records come back ordered by creation
// time so listings are stable across calls.
func (s *MemoryAccountStore) List(_ context.Context) ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AccountRecord, 0, len(s.accounts))
	for _, record := range s.accounts {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
