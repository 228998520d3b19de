package invite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/internal/secrets"
)

// ErrInviteInvalid is the single failure returned for every
// non-consumable invite: unknown token, already used, or expired.
// Callers cannot distinguish the cases; there are no soft states.
var ErrInviteInvalid = errors.New("invalid or expired invite token")

// Issued is returned by [Manager.CreateInvite]. RawToken is handed to
// the administrator for delivery and is never persisted.
type Issued struct {
	RawToken  string
	TokenHash string
	ExpiresAt time.Time
}

// Active describes the most recent pending invite of an account.
// RawToken is empty when the cached token has already aged out, in
// which case only the expiry can be shown, not a reconstructible link.
type Active struct {
	RawToken  string
	ExpiresAt time.Time
}

// Manager owns invite records and their cache shadow jointly: every
// record mutation keeps the cache consistent, and account deletion
// cascades through [Manager.DeleteAllForAccount].
type Manager struct {
	store Store
	cache *TokenCache
	now   func() time.Time
}

// NewManager creates an invite [Manager]. now defaults to time.Now.
func NewManager(store Store, cache *TokenCache, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store: store,
		cache: cache,
		now:   now,
	}
}

// CreateInvite generates a random single-use token for the account,
// persists its hash with the given validity window, and caches the raw
// token under the same hash so the link can be re-displayed until it
// expires.
func (m *Manager) CreateInvite(ctx context.Context, accountID uuid.UUID, ttl time.Duration) (*Issued, error) {
	rawToken, err := secrets.RandomToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	record := Record{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: secrets.SHA256Hex(rawToken),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := m.store.Create(ctx, record); err != nil {
		return nil, err
	}
	if _, err := m.cache.Put(ctx, record.TokenHash, rawToken, record.ExpiresAt); err != nil {
		return nil, err
	}

	return &Issued{
		RawToken:  rawToken,
		TokenHash: record.TokenHash,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// ConsumeInvite redeems a raw invite token exactly once and returns the
// account it provisions. The used-at transition happens as a
// storage-level conditional update, so racing consumers of the same
// token observe one success and [ErrInviteInvalid] everywhere else.
// The cache entry is deleted together with consumption.
func (m *Manager) ConsumeInvite(ctx context.Context, rawToken string) (uuid.UUID, error) {
	record, err := m.store.FindByTokenHash(ctx, secrets.SHA256Hex(rawToken))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return uuid.Nil, ErrInviteInvalid
		}
		return uuid.Nil, err
	}

	now := m.now()
	if record.UsedAt != nil || !record.ExpiresAt.After(now) {
		return uuid.Nil, ErrInviteInvalid
	}

	won, err := m.store.MarkUsed(ctx, record.ID, now)
	if err != nil {
		return uuid.Nil, err
	}
	if !won {
		return uuid.Nil, ErrInviteInvalid
	}

	if _, err := m.cache.Delete(ctx, record.TokenHash); err != nil {
		return uuid.Nil, err
	}
	return record.AccountID, nil
}

// DeleteAllForAccount removes every invite record of the account along
// with its cache shadow. Called when the account itself is deleted so
// no orphaned invite link survives.
func (m *Manager) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	records, err := m.store.FindByAccountID(ctx, accountID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if _, err := m.cache.Delete(ctx, record.TokenHash); err != nil {
			return err
		}
		if err := m.store.Delete(ctx, record.ID); err != nil {
			return err
		}
	}
	return nil
}

// FindActiveInvite returns the most recently created unused, unexpired
// invite for the account, or nil when none is pending. The raw token is
// read back from the cache; when the cache entry is gone only the
// expiry is reported.
func (m *Manager) FindActiveInvite(ctx context.Context, accountID uuid.UUID) (*Active, error) {
	records, err := m.store.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for _, record := range records {
		if record.UsedAt != nil || !record.ExpiresAt.After(now) {
			continue
		}
		rawToken, err := m.cache.Get(ctx, record.TokenHash)
		if err != nil {
			return nil, err
		}
		return &Active{
			RawToken:  rawToken,
			ExpiresAt: record.ExpiresAt,
		}, nil
	}
	return nil, nil
}
