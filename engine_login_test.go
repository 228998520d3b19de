package authkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clubforge/authkit/identity"
	"github.com/clubforge/authkit/jwt"
	"github.com/clubforge/authkit/revoke"
)

func TestLoginHappyPath(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	id := env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	result, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if result.AccountID != id {
		t.Fatalf("unexpected account id %s", result.AccountID)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if result.AccessToken == result.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if result.ForcePasswordChange {
		t.Fatal("seeded account does not require a password change")
	}
	if result.Role != identity.RoleUser {
		t.Fatalf("unexpected role %s", result.Role)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	id := env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	if _, err := env.engine.Login(ctx, "mina", "correct horse battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	stored, err := env.accounts.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("expected LastLoginAt to be recorded")
	}
	if !stored.LastLoginAt.Equal(env.clock.Now().UTC()) {
		t.Fatalf("LastLoginAt = %v, want %v", stored.LastLoginAt, env.clock.Now().UTC())
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)
	env.seedAccount(t, "dormant", "correct horse battery", identity.RoleUser, identity.TrackSpin, false)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown username", "nobody", "correct horse battery"},
		{"wrong password", "mina", "wrong password pass"},
		{"inactive account", "dormant", "correct horse battery"},
		{"empty password", "mina", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Login(ctx, tc.username, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginSurfacesForcePasswordChange(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	adminID := env.seedAdmin(t, "root", "admin password 1")
	created, err := env.engine.CreateAccount(ctx, adminID, CreateAccountRequest{
		Role:   identity.RoleUser,
		Track:  identity.TrackFlag,
		Cohort: 3,
		Mode:   ProvisionPassword,
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	result, err := env.engine.Login(ctx, created.Account.Username, created.TempPassword)
	if err != nil {
		t.Fatalf("Login with temp password failed: %v", err)
	}
	if !result.ForcePasswordChange {
		t.Fatal("expected ForcePasswordChange on first login with a temp password")
	}
}

func TestRefreshMintsAccessOnly(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	login, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	env.clock.Advance(time.Minute)

	refreshed, err := env.engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatal("refresh must mint a new access token")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	login, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("want ErrRefreshInvalid for an access token, got %v", err)
	}
}

func TestRefreshAfterLogoutIsBlocked(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	login, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, revoke.ErrRefreshRevoked) {
		t.Fatalf("want ErrRefreshRevoked after logout, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricRefreshBlocked] == 0 {
		t.Fatal("expected MetricRefreshBlocked to be counted")
	}
}

func TestLogoutDenylistExpiresWithToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	login, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	keys := env.redis.Keys()
	if len(keys) == 0 {
		t.Fatal("expected a denylist marker in redis")
	}

	remaining := login.RefreshExpiresAt.Sub(env.clock.Now())
	for _, key := range keys {
		ttl := env.redis.TTL(key)
		if ttl <= 0 || ttl > remaining {
			t.Fatalf("marker TTL %v must be positive and at most %v", ttl, remaining)
		}
	}
}

func TestLogoutRejectsMalformedToken(t *testing.T) {
	env := newTestEngine(t, nil)

	if err := env.engine.Logout(context.Background(), "not-a-token"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("want ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshCarriesCurrentRole(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	adminID := env.seedAdmin(t, "root", "admin password 1")
	memberID := env.seedAccount(t, "mina", "correct horse battery", identity.RoleUser, identity.TrackFlag, true)

	login, err := env.engine.Login(ctx, "mina", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := env.engine.UpdateRole(ctx, adminID, memberID, identity.RoleOrganizer); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}

	refreshed, err := env.engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	principal, err := env.engine.jwtManager.VerifyAndParse(context.Background(), refreshed.AccessToken, jwt.KindAccess)
	if err != nil {
		t.Fatalf("VerifyAndParse failed: %v", err)
	}
	if principal.Role != identity.RoleOrganizer {
		t.Fatalf("refreshed access token role = %s, want ORGANIZER", principal.Role)
	}
}
