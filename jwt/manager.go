package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
)

// TokenKind distinguishes the two credential kinds issued by the
// [Manager]. The kind is fixed at issuance and never changes for the
// lifetime of a token.
type TokenKind string

const (
	// KindAccess is the short-lived request credential.
	KindAccess TokenKind = "ACCESS"
	// KindRefresh is the longer-lived credential used solely to mint new access tokens.
	KindRefresh TokenKind = "REFRESH"
)

var (
	// ErrInvalidFormat is returned when a token is not a parseable compact JWS.
	ErrInvalidFormat = errors.New("invalid token format")
	// ErrInvalidSignature is returned when the MAC check fails.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrInvalidIssuer is returned when the iss claim does not match configuration.
	ErrInvalidIssuer = errors.New("invalid token issuer")
	// ErrInvalidAudience is returned when the aud claim does not contain the configured audience.
	ErrInvalidAudience = errors.New("invalid token audience")
	// ErrUnexpectedKind is returned when the token kind does not match the expected kind.
	ErrUnexpectedKind = errors.New("unexpected token kind")
	// ErrExpired is returned when exp is more than the skew tolerance in the past.
	ErrExpired = errors.New("token is expired")
	// ErrIssuedInFuture is returned when iat is more than the skew tolerance in the future.
	ErrIssuedInFuture = errors.New("token issue time is invalid")
	// ErrInvalidSubject is returned when sub is not a well-formed account id.
	ErrInvalidSubject = errors.New("invalid token subject")
	// ErrMissingClaim is returned when a structurally required claim is absent or malformed.
	ErrMissingClaim = errors.New("missing or malformed token claim")
)

const minSecretBytes = 32

// Telemetry receives the reason code of every verification failure
// together with the caller's context, so implementations can correlate
// the signal with the request that carried the token. The manager never
// passes the raw token to implementations.
type Telemetry interface {
	TokenValidationFailed(ctx context.Context, reason string)
}

// NoopTelemetry discards all signals.
type NoopTelemetry struct{}

// TokenValidationFailed implements [Telemetry].
func (NoopTelemetry) TokenValidationFailed(context.Context, string) {}

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Issuer     string
	Audience   string
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// ClockSkew is the symmetric tolerance applied to exp and iat
	// checks. It absorbs clock drift between issuing and verifying
	// processes and is the only deliberately soft edge in the
	// validation state machine.
	ClockSkew time.Duration
	// Now is the injectable time source. Defaults to time.Now.
	Now func() time.Time
	// Telemetry receives failure reason codes. Defaults to [NoopTelemetry].
	Telemetry Telemetry
}

// Token is an issued credential together with its expiry and kind.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Kind      TokenKind
}

// Principal is the verified identity recovered from a token.
type Principal struct {
	AccountID uuid.UUID
	Username  string
	Role      identity.Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// Manager issues and verifies signed tokens. The signing secret is
// read-only after construction and the manager is safe for concurrent use.
type Manager struct {
	config Config
}

type sessionClaims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// NewManager validates the configuration and returns a token [Manager].
//
// NewManager may return an error when input validation fails; the
// secret must carry at least 32 bytes and issuer/audience are required.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("audience is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.ClockSkew < 0 || cfg.ClockSkew > 2*time.Minute {
		return nil, errors.New("invalid clock skew configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = NoopTelemetry{}
	}

	return &Manager{config: cfg}, nil
}

// IssueAccessToken mints a signed ACCESS token for the account. The
// only effect is computation; nothing is persisted.
func (m *Manager) IssueAccessToken(accountID uuid.UUID, username string, role identity.Role) (Token, error) {
	return m.issue(accountID, username, role, KindAccess, m.config.AccessTTL)
}

// IssueRefreshToken mints a signed REFRESH token for the account.
func (m *Manager) IssueRefreshToken(accountID uuid.UUID, username string, role identity.Role) (Token, error) {
	return m.issue(accountID, username, role, KindRefresh, m.config.RefreshTTL)
}

// VerifyAndParse checks the signature and every claim of rawToken
// against the configured issuer, audience, and expiry window, enforces
// the expected kind, and returns the recovered [Principal].
//
// Each failure path returns one sentinel from this package and emits
// exactly one telemetry signal carrying only the failure reason and the
// caller's context.
func (m *Manager) VerifyAndParse(ctx context.Context, rawToken string, expectedKind TokenKind) (*Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &sessionClaims{}
	_, err := parser.ParseWithClaims(rawToken, claims, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, m.fail(ctx, ErrInvalidSignature)
		}
		return nil, m.fail(ctx, ErrInvalidFormat)
	}

	if claims.Issuer != m.config.Issuer {
		return nil, m.fail(ctx, ErrInvalidIssuer)
	}
	if !containsAudience(claims.Audience, m.config.Audience) {
		return nil, m.fail(ctx, ErrInvalidAudience)
	}

	kind := TokenKind(claims.TokenType)
	if kind != KindAccess && kind != KindRefresh {
		return nil, m.fail(ctx, ErrMissingClaim)
	}
	if kind != expectedKind {
		return nil, m.fail(ctx, ErrUnexpectedKind)
	}

	now := m.config.Now()
	skew := m.config.ClockSkew
	if claims.ExpiresAt == nil {
		return nil, m.fail(ctx, ErrMissingClaim)
	}
	if claims.ExpiresAt.Time.Before(now.Add(-skew)) {
		return nil, m.fail(ctx, ErrExpired)
	}
	if claims.IssuedAt == nil {
		return nil, m.fail(ctx, ErrMissingClaim)
	}
	if claims.IssuedAt.Time.After(now.Add(skew)) {
		return nil, m.fail(ctx, ErrIssuedInFuture)
	}

	accountID, parseErr := uuid.Parse(claims.Subject)
	if parseErr != nil {
		return nil, m.fail(ctx, ErrInvalidSubject)
	}
	if claims.Username == "" {
		return nil, m.fail(ctx, ErrMissingClaim)
	}
	role, roleErr := identity.ParseRole(claims.Role)
	if roleErr != nil {
		return nil, m.fail(ctx, ErrMissingClaim)
	}
	if claims.ID == "" {
		return nil, m.fail(ctx, ErrMissingClaim)
	}

	return &Principal{
		AccountID: accountID,
		Username:  claims.Username,
		Role:      role,
		Kind:      kind,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenID:   claims.ID,
	}, nil
}

func (m *Manager) issue(accountID uuid.UUID, username string, role identity.Role, kind TokenKind, ttl time.Duration) (Token, error) {
	now := m.config.Now()
	expiresAt := now.Add(ttl)

	claims := &sessionClaims{
		Username:  username,
		Role:      string(role),
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return Token{}, err
	}

	return Token{
		Value:     signed,
		ExpiresAt: expiresAt,
		Kind:      kind,
	}, nil
}

func (m *Manager) fail(ctx context.Context, reason error) error {
	m.config.Telemetry.TokenValidationFailed(ctx, reason.Error())
	return reason
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
