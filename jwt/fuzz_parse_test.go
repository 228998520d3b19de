package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
)

// FuzzVerifyAndParse exercises the token parser with arbitrary strings.
// Goal: no panics; invalid inputs must be rejected with errors.
func FuzzVerifyAndParse(f *testing.F) {
	mgr, err := NewManager(Config{
		Issuer:     "fuzz-test",
		Audience:   "fuzz-clients",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
		ClockSkew:  30 * time.Second,
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, err := mgr.IssueAccessToken(uuid.New(), "user_01", identity.RoleUser)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid.Value)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic. Errors are expected for malformed input.
		principal, err := mgr.VerifyAndParse(context.Background(), input, KindAccess)
		if err != nil {
			return
		}
		if principal == nil {
			t.Fatal("VerifyAndParse returned nil principal without error")
		}
	})
}
