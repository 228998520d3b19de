// Package revoke is the logout denylist: a Redis-backed negative cache
// of refresh tokens explicitly invalidated before their natural expiry.
// Entries are keyed by a one-way hash of the raw token and carry a TTL
// equal to the token's remaining lifetime, so the denylist self-prunes
// and its size tracks logout volume, not active-session volume.
package revoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clubforge/authkit/internal/secrets"
)

var (
	// ErrRefreshRevoked is returned by [Store.RejectIfLoggedOut] for a denylisted token.
	ErrRefreshRevoked = errors.New("refresh token is logged out")
	// ErrRedisUnavailable wraps transport failures against the denylist backend.
	ErrRedisUnavailable = errors.New("revocation redis unavailable")
)

const (
	defaultPrefix = "logout:refresh"
	logoutMarker  = "1"
)

// Telemetry receives a signal whenever a revoked refresh token is
// blocked. Only the hashed key is passed, never the raw token.
type Telemetry interface {
	RefreshBlocked(ctx context.Context, tokenKey string)
}

// NoopTelemetry discards all signals.
type NoopTelemetry struct{}

// RefreshBlocked implements [Telemetry].
func (NoopTelemetry) RefreshBlocked(context.Context, string) {}

// Store defines a public type used by authkit APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	now       func() time.Time
	telemetry Telemetry
}

// NewStore creates a denylist [Store] backed by the given Redis client.
// prefix defaults to "logout:refresh"; now defaults to time.Now;
// telemetry defaults to [NoopTelemetry].
func NewStore(redisClient redis.UniversalClient, prefix string, now func() time.Time, telemetry Telemetry) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if now == nil {
		now = time.Now
	}
	if telemetry == nil {
		telemetry = NoopTelemetry{}
	}
	return &Store{
		redis:     redisClient,
		prefix:    prefix,
		now:       now,
		telemetry: telemetry,
	}
}

// MarkLoggedOut writes a denylist entry for the raw refresh token with
// TTL equal to its remaining validity. Returns false without writing
// when the token is already past its expiry; an entry never outlives
// the token it blocks.
//
//	Performance: 1 Redis SET.
func (s *Store) MarkLoggedOut(ctx context.Context, rawRefreshToken string, refreshExpiresAt time.Time) (bool, error) {
	ttl := refreshExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return false, nil
	}

	if err := s.redis.Set(ctx, s.key(rawRefreshToken), logoutMarker, ttl).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}

// IsLoggedOut reports whether the raw refresh token has a denylist entry.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) IsLoggedOut(ctx context.Context, rawRefreshToken string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(rawRefreshToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// RejectIfLoggedOut fails with [ErrRefreshRevoked] iff the token is
// denylisted. Used as a guard before minting a new access token from a
// refresh token; this is what makes logout effective despite refresh
// tokens being otherwise stateless and self-validating.
func (s *Store) RejectIfLoggedOut(ctx context.Context, rawRefreshToken string) error {
	loggedOut, err := s.IsLoggedOut(ctx, rawRefreshToken)
	if err != nil {
		return err
	}
	if loggedOut {
		s.telemetry.RefreshBlocked(ctx, s.key(rawRefreshToken))
		return ErrRefreshRevoked
	}
	return nil
}

func (s *Store) key(rawRefreshToken string) string {
	return s.prefix + ":" + secrets.SHA256Hex(rawRefreshToken)
}
