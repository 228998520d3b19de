package invite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps transport failures against the cache backend.
var ErrCacheUnavailable = errors.New("invite cache unavailable")

const defaultCachePrefix = "invite:token"

// TokenCache holds raw invite tokens keyed by their hash so a pending
// invite link can be re-displayed. Entries expire with the invite; the
// cache never holds a token longer than the invite is consumable.
type TokenCache struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewTokenCache creates a [TokenCache] on the given Redis client.
// prefix defaults to "invite:token"; now defaults to time.Now.
func NewTokenCache(redisClient redis.UniversalClient, prefix string, now func() time.Time) *TokenCache {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCache{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

// Put stores the raw token under its hash with TTL equal to the
// remaining validity. Returns false without writing when the invite is
// already past its expiry. Writes are keyed by the deterministic hash,
// so concurrent writers for the same token converge on the same entry.
func (c *TokenCache) Put(ctx context.Context, tokenHash, rawToken string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return false, nil
	}

	if err := c.redis.Set(ctx, c.key(tokenHash), rawToken, ttl).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return true, nil
}

// Get returns the cached raw token for the hash, or "" when the entry
// has expired or was deleted.
func (c *TokenCache) Get(ctx context.Context, tokenHash string) (string, error) {
	raw, err := c.redis.Get(ctx, c.key(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return raw, nil
}

// Delete removes the cache entry for the hash. Deleting a missing entry
// is not an error.
func (c *TokenCache) Delete(ctx context.Context, tokenHash string) (bool, error) {
	n, err := c.redis.Del(ctx, c.key(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return n > 0, nil
}

func (c *TokenCache) key(tokenHash string) string {
	return c.prefix + ":" + tokenHash
}
