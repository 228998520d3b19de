package revoke

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordingTelemetry struct {
	blockedKeys []string
}

func (r *recordingTelemetry) RefreshBlocked(_ context.Context, tokenKey string) {
	r.blockedKeys = append(r.blockedKeys, tokenKey)
}

func newTestStore(t *testing.T, now func() time.Time, telemetry Telemetry) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "", now, telemetry), mr
}

func TestMarkThenCheckAndReject(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	telemetry := &recordingTelemetry{}
	store, _ := newTestStore(t, func() time.Time { return now }, telemetry)
	ctx := context.Background()

	const token = "refresh-token-abc"
	written, err := store.MarkLoggedOut(ctx, token, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !written {
		t.Fatal("expected denylist write for live token")
	}

	loggedOut, err := store.IsLoggedOut(ctx, token)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !loggedOut {
		t.Fatal("expected token to be logged out")
	}

	if err := store.RejectIfLoggedOut(ctx, token); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected ErrRefreshRevoked, got %v", err)
	}
	if len(telemetry.blockedKeys) != 1 {
		t.Fatalf("expected 1 blocked signal, got %d", len(telemetry.blockedKeys))
	}
	if strings.Contains(telemetry.blockedKeys[0], token) {
		t.Fatal("telemetry must carry the hashed key, not the raw token")
	}
}

func TestUnrelatedTokenUnaffected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, _ := newTestStore(t, func() time.Time { return now }, nil)
	ctx := context.Background()

	if _, err := store.MarkLoggedOut(ctx, "token-a", now.Add(time.Hour)); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	loggedOut, err := store.IsLoggedOut(ctx, "token-b")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if loggedOut {
		t.Fatal("unrelated token must not be denylisted")
	}
	if err := store.RejectIfLoggedOut(ctx, "token-b"); err != nil {
		t.Fatalf("unrelated token must pass the guard: %v", err)
	}
}

func TestMarkExpiredTokenWritesNothing(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, mr := newTestStore(t, func() time.Time { return now }, nil)
	ctx := context.Background()

	written, err := store.MarkLoggedOut(ctx, "dead-token", now.Add(-time.Second))
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if written {
		t.Fatal("expected no write for an already-expired token")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected empty denylist, found keys %v", mr.Keys())
	}

	// Exactly-at-expiry is also a no-op.
	written, err = store.MarkLoggedOut(ctx, "dead-token", now)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if written {
		t.Fatal("expected no write at the expiry instant")
	}
}

func TestEntryTTLTracksRemainingLifetime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, mr := newTestStore(t, func() time.Time { return now }, nil)
	ctx := context.Background()

	const token = "refresh-token-ttl"
	if _, err := store.MarkLoggedOut(ctx, token, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if ttl := mr.TTL(keys[0]); ttl != 10*time.Minute {
		t.Fatalf("expected 10m TTL, got %v", ttl)
	}

	// Once the backend expires the entry the token is unblocked again.
	mr.FastForward(10*time.Minute + time.Second)
	loggedOut, err := store.IsLoggedOut(ctx, token)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if loggedOut {
		t.Fatal("entry must not outlive the token it blocks")
	}
}

func TestMarkIsIdempotentPerToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, mr := newTestStore(t, func() time.Time { return now }, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.MarkLoggedOut(ctx, "same-token", now.Add(time.Hour)); err != nil {
			t.Fatalf("mark %d failed: %v", i, err)
		}
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("concurrent writers must converge on one key, got %d", len(mr.Keys()))
	}
}

func TestRedisDownSurfacesTransportError(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, mr := newTestStore(t, func() time.Time { return now }, nil)
	ctx := context.Background()

	mr.Close()

	if _, err := store.MarkLoggedOut(ctx, "token", now.Add(time.Hour)); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.IsLoggedOut(ctx, "token"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
