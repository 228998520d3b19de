package invite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by [Store] lookups that match no record.
var ErrRecordNotFound = errors.New("invite record not found")

// Record is the persistent shadow of an issued invite. Only the SHA-256
// hash of the raw token is ever stored; the raw value lives exclusively
// in the cache until the invite expires.
type Record struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Store is the persistence interface the embedding application
// implements for invite records. Implementations back onto whatever
// database the application uses; [MemoryStore] is the in-process
// reference implementation.
type Store interface {
	// Create persists a new invite record.
	Create(ctx context.Context, record Record) error
	// FindByTokenHash returns the record with the given token hash, or
	// [ErrRecordNotFound].
	FindByTokenHash(ctx context.Context, tokenHash string) (*Record, error)
	// FindByAccountID returns all records for the account, newest first.
	FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]Record, error)
	// MarkUsed sets used-at on the record iff it is still unset, as a
	// single storage-level conditional update. It reports whether this
	// call won the transition. Racing consumers of the same invite must
	// observe exactly one true.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
