// Package sequence allocates monotonically increasing integers for the
// two counter families used during provisioning: the global username
// sequence and the per-cohort ordinal sequence. Both are backed by a
// single Redis INCR so that concurrent provisioning requests across
// process instances never collide; there is no read-then-write window.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrAllocationFailed is returned when the backend cannot guarantee the
// atomic increment. The allocator never retries on its own: without
// idempotency a blind retry could skip or duplicate a value depending
// on where the failure happened. Retry policy belongs to the caller.
var ErrAllocationFailed = errors.New("sequence allocation failed")

const (
	globalKey    = "user_seq"
	cohortPrefix = "cohort_seq"
)

// Allocator defines a public type used by authkit APIs.
//
// Allocator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Allocator struct {
	redis  redis.UniversalClient
	prefix string
}

// NewAllocator creates an [Allocator] on the given Redis client.
// prefix namespaces the counter keys and may be empty.
func NewAllocator(redisClient redis.UniversalClient, prefix string) *Allocator {
	return &Allocator{
		redis:  redisClient,
		prefix: prefix,
	}
}

// NextGlobalSequence atomically increments and returns the shared
// username counter. Values only increase and are never reused, even
// after account deletion.
//
//	Performance: 1 Redis INCR.
func (a *Allocator) NextGlobalSequence(ctx context.Context) (int64, error) {
	return a.incr(ctx, a.key(globalKey))
}

// NextCohortOrdinal atomically increments and returns the counter
// scoped to cohort. Two concurrent calls for the same cohort never
// return the same value; different cohorts never interfere.
//
//	Performance: 1 Redis INCR.
func (a *Allocator) NextCohortOrdinal(ctx context.Context, cohort int) (int64, error) {
	return a.incr(ctx, a.key(cohortPrefix+":"+strconv.Itoa(cohort)))
}

func (a *Allocator) incr(ctx context.Context, key string) (int64, error) {
	n, err := a.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	return n, nil
}

func (a *Allocator) key(suffix string) string {
	if a.prefix == "" {
		return suffix
	}
	return a.prefix + ":" + suffix
}
