package invite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clubforge/authkit/internal/secrets"
)

func newTestManager(t *testing.T, now *time.Time) (*Manager, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := func() time.Time { return *now }
	store := NewMemoryStore()
	mgr := NewManager(store, NewTokenCache(rdb, "", clock), clock)
	return mgr, store, mr
}

func TestCreateInvitePersistsHashAndCachesRawToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, store, mr := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	issued, err := mgr.CreateInvite(ctx, accountID, 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if issued.RawToken == "" {
		t.Fatal("expected a raw token")
	}
	if issued.TokenHash != secrets.SHA256Hex(issued.RawToken) {
		t.Fatal("token hash must be the sha256 of the raw token")
	}
	if !issued.ExpiresAt.Equal(now.Add(72 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}

	record, err := store.FindByTokenHash(ctx, issued.TokenHash)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.AccountID != accountID {
		t.Fatal("record bound to wrong account")
	}
	if record.UsedAt != nil {
		t.Fatal("fresh invite must be unused")
	}

	cached, err := mr.Get("invite:token:" + issued.TokenHash)
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	if cached != issued.RawToken {
		t.Fatal("cache must hold the raw token under the hash key")
	}
	if ttl := mr.TTL("invite:token:" + issued.TokenHash); ttl != 72*time.Hour {
		t.Fatalf("cache TTL must equal remaining validity, got %v", ttl)
	}
}

func TestTokenCachePrefixNamespacesKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := func() time.Time { return now }
	mgr := NewManager(NewMemoryStore(), NewTokenCache(rdb, "clubforge:invite:token", clock), clock)

	issued, err := mgr.CreateInvite(context.Background(), uuid.New(), 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cached, err := mr.Get("clubforge:invite:token:" + issued.TokenHash)
	if err != nil {
		t.Fatalf("prefixed cache entry missing: %v", err)
	}
	if cached != issued.RawToken {
		t.Fatal("prefixed cache entry must hold the raw token")
	}

	for _, key := range mr.Keys() {
		if !strings.HasPrefix(key, "clubforge:") {
			t.Fatalf("key %q escaped the configured namespace", key)
		}
	}
}

func TestConsumeInviteHappyPathDeletesCacheEntry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, store, mr := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	issued, err := mgr.CreateInvite(ctx, accountID, 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := mgr.ConsumeInvite(ctx, issued.RawToken)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got != accountID {
		t.Fatalf("expected account %s, got %s", accountID, got)
	}

	record, err := store.FindByTokenHash(ctx, issued.TokenHash)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.UsedAt == nil || !record.UsedAt.Equal(now) {
		t.Fatalf("used-at must be set to consumption time, got %v", record.UsedAt)
	}
	if mr.Exists("invite:token:" + issued.TokenHash) {
		t.Fatal("cache entry must be deleted with consumption")
	}
}

func TestConsumeInviteSecondAttemptFails(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _, _ := newTestManager(t, &now)
	ctx := context.Background()

	issued, err := mgr.CreateInvite(ctx, uuid.New(), 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := mgr.ConsumeInvite(ctx, issued.RawToken); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if _, err := mgr.ConsumeInvite(ctx, issued.RawToken); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid on reuse, got %v", err)
	}
}

func TestConsumeInviteExactlyOnceUnderRacingCallers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, store, _ := newTestManager(t, &now)
	ctx := context.Background()

	issued, err := mgr.CreateInvite(ctx, uuid.New(), 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const racers = 32
	var wg sync.WaitGroup
	wg.Add(racers)
	successes := make(chan uuid.UUID, racers)
	failures := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			id, err := mgr.ConsumeInvite(ctx, issued.RawToken)
			if err != nil {
				failures <- err
				return
			}
			successes <- id
		}()
	}
	wg.Wait()
	close(successes)
	close(failures)

	if len(successes) != 1 {
		t.Fatalf("expected exactly one winning consumer, got %d", len(successes))
	}
	for err := range failures {
		if !errors.Is(err, ErrInviteInvalid) {
			t.Fatalf("losing racers must observe ErrInviteInvalid, got %v", err)
		}
	}

	record, err := store.FindByTokenHash(ctx, issued.TokenHash)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.UsedAt == nil {
		t.Fatal("winning consumption must persist used-at")
	}
}

func TestConsumeExpiredInviteFailsEvenIfUnused(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, store, _ := newTestManager(t, &now)
	ctx := context.Background()

	issued, err := mgr.CreateInvite(ctx, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	now = now.Add(time.Hour) // exactly at expiry: expired is expired
	if _, err := mgr.ConsumeInvite(ctx, issued.RawToken); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid, got %v", err)
	}

	record, err := store.FindByTokenHash(ctx, issued.TokenHash)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.UsedAt != nil {
		t.Fatal("failed consumption must not mark the record used")
	}
}

func TestConsumeUnknownTokenFails(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _, _ := newTestManager(t, &now)

	if _, err := mgr.ConsumeInvite(context.Background(), "no-such-token"); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid, got %v", err)
	}
}

func TestDeleteAllForAccountCascadesCache(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, store, mr := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	first, err := mgr.CreateInvite(ctx, accountID, 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	now = now.Add(time.Minute)
	second, err := mgr.CreateInvite(ctx, accountID, 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other, err := mgr.CreateInvite(ctx, uuid.New(), 72*time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := mgr.DeleteAllForAccount(ctx, accountID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for _, hash := range []string{first.TokenHash, second.TokenHash} {
		if _, err := store.FindByTokenHash(ctx, hash); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("record %s must be deleted, got %v", hash, err)
		}
		if mr.Exists("invite:token:" + hash) {
			t.Fatal("cache shadow must be deleted with the record")
		}
	}

	// Another account's invite is untouched.
	if _, err := store.FindByTokenHash(ctx, other.TokenHash); err != nil {
		t.Fatalf("unrelated record must survive: %v", err)
	}
}

func TestFindActiveInvitePrefersNewestPending(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _, _ := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	if _, err := mgr.CreateInvite(ctx, accountID, time.Hour); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	now = now.Add(time.Minute)
	newest, err := mgr.CreateInvite(ctx, accountID, time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	active, err := mgr.FindActiveInvite(ctx, accountID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if active == nil {
		t.Fatal("expected a pending invite")
	}
	if active.RawToken != newest.RawToken {
		t.Fatal("expected the newest pending invite's raw token")
	}
	if !active.ExpiresAt.Equal(newest.ExpiresAt) {
		t.Fatalf("unexpected expiry %v", active.ExpiresAt)
	}
}

func TestFindActiveInviteWithoutCacheEntryReportsExpiryOnly(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _, mr := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	issued, err := mgr.CreateInvite(ctx, accountID, time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	mr.Del("invite:token:" + issued.TokenHash)

	active, err := mgr.FindActiveInvite(ctx, accountID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if active == nil {
		t.Fatal("pending record must still be reported")
	}
	if active.RawToken != "" {
		t.Fatal("a link must not be reconstructible once the cache entry is gone")
	}
	if !active.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("unexpected expiry %v", active.ExpiresAt)
	}
}

func TestFindActiveInviteSkipsUsedAndExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _, _ := newTestManager(t, &now)
	ctx := context.Background()
	accountID := uuid.New()

	used, err := mgr.CreateInvite(ctx, accountID, time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := mgr.ConsumeInvite(ctx, used.RawToken); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	active, err := mgr.FindActiveInvite(ctx, accountID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if active != nil {
		t.Fatal("used invite must not be reported as pending")
	}

	if _, err := mgr.CreateInvite(ctx, accountID, time.Minute); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	now = now.Add(2 * time.Minute)

	active, err = mgr.FindActiveInvite(ctx, accountID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if active != nil {
		t.Fatal("expired invite must not be reported as pending")
	}
}
