package authkit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Invite   InviteConfig
	Account  AccountConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authkit APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Issuer     string
	Audience   string
	Secret     []byte // HS256 signing secret, at least 32 bytes
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authkit APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
INVITE CONFIG
====================================
*/

// InviteConfig defines a public type used by authkit APIs.
//
// InviteConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type InviteConfig struct {
	// TTL is the validity window of a freshly issued invite.
	TTL time.Duration
	// LinkBaseURL, when set, is prepended to the raw invite token to
	// form the invite link handed to administrators.
	LinkBaseURL string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig defines a public type used by authkit APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	TempPasswordLength int
	Bootstrap          BootstrapConfig
}

// BootstrapConfig describes the initial administrator account ensured
// by [Engine.EnsureBootstrapAdmin] on startup.
type BootstrapConfig struct {
	Enabled  bool
	Username string
	Password string
	Cohort   int
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig defines a public type used by authkit APIs.
//
// RedisConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedisConfig struct {
	// KeyPrefix namespaces every key the engine writes (denylist
	// markers, sequence counters, invite cache). Empty means no
	// namespace, matching a dedicated logical database.
	KeyPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by authkit APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
			ClockSkew:  30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
		},
		Invite: InviteConfig{
			TTL: 72 * time.Hour,
		},
		Account: AccountConfig{
			TempPasswordLength: 12,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

const minSecretBytes = 32

var bootstrapUsernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,32}$`)

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT.Issuer is required")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT.Audience is required")
	}
	if len(c.JWT.Secret) < minSecretBytes {
		return fmt.Errorf("JWT.Secret must be at least %d bytes", minSecretBytes)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT.RefreshTTL must exceed JWT.AccessTTL")
	}
	if c.JWT.ClockSkew < 0 || c.JWT.ClockSkew > 2*time.Minute {
		return errors.New("JWT.ClockSkew must be within [0, 2m]")
	}

	if c.Password.MinLength < 8 {
		return errors.New("Password.MinLength must be at least 8")
	}

	if c.Invite.TTL <= 0 {
		return errors.New("Invite.TTL must be positive")
	}
	if c.Invite.LinkBaseURL != "" && !strings.HasSuffix(c.Invite.LinkBaseURL, "/") &&
		!strings.Contains(c.Invite.LinkBaseURL, "?") {
		return errors.New("Invite.LinkBaseURL must end with '/' or carry a query prefix")
	}

	if c.Account.TempPasswordLength < 10 {
		return errors.New("Account.TempPasswordLength must be at least 10")
	}
	if c.Account.Bootstrap.Enabled {
		if !bootstrapUsernamePattern.MatchString(c.Account.Bootstrap.Username) {
			return errors.New("Account.Bootstrap.Username is malformed")
		}
		if len(c.Account.Bootstrap.Password) < c.Password.MinLength {
			return errors.New("Account.Bootstrap.Password is shorter than Password.MinLength")
		}
		if c.Account.Bootstrap.Cohort < 0 || c.Account.Bootstrap.Cohort > 9 {
			return errors.New("Account.Bootstrap.Cohort must be within [0,9]")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}

	return nil
}
