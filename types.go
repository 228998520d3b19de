package authkit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
)

// AccountRecord is the full account row handled by [AccountStore]. It
// carries the credential hash, role and track assignment, the cohort
// placement, and the derived public code.
type AccountRecord struct {
	ID                  uuid.UUID
	Username            string
	Nickname            string
	PasswordHash        string
	Role                identity.Role
	Track               identity.Track
	Cohort              int
	CohortOrdinal       int
	PublicCode          string
	ForcePasswordChange bool
	Active              bool
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AccountStore is the primary interface that callers must implement to
// integrate authkit with their account database. It covers lookup,
// creation, mutation, and listing; invite records live behind the
// separate [github.com/clubforge/authkit/invite.Store].
//
// Create and Update must enforce username uniqueness at the storage
// level and return [ErrUsernameUnavailable] on a violation, so that two
// racing claims of the same name cannot both succeed.
type AccountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AccountRecord, error)
	FindByUsername(ctx context.Context, username string) (*AccountRecord, error)
	FindByPublicCode(ctx context.Context, publicCode string) (*AccountRecord, error)
	Create(ctx context.Context, record AccountRecord) error
	Update(ctx context.Context, record AccountRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]AccountRecord, error)
}

// PasswordHasher abstracts credential hashing. The default
// implementation is [github.com/clubforge/authkit/password.Hasher].
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, encodedHash string) (bool, error)
}

// LoginResult is returned by [Engine.Login]. ForcePasswordChange is
// surfaced so the caller can steer the client into a password-change
// flow before granting full access.
type LoginResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time

	AccountID           uuid.UUID
	Username            string
	Role                identity.Role
	ForcePasswordChange bool
}

// RefreshResult is returned by [Engine.Refresh]. Only a new access
// token is minted; the refresh token presented by the caller stays
// valid until it expires or is logged out.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

// ProvisionMode selects how [Engine.CreateAccount] hands the initial
// credential to the new member.
type ProvisionMode uint8

const (
	// ProvisionPassword creates an active account with a generated
	// temporary password that must be changed on first login.
	ProvisionPassword ProvisionMode = iota
	// ProvisionInvite creates an inactive account and an invite link;
	// the member picks their own password during activation.
	ProvisionInvite
)

// CreateAccountRequest is the input for [Engine.CreateAccount].
// Track is only meaningful for the USER role and is forced to the
// default track for every other role. Cohort must be in [0,9].
type CreateAccountRequest struct {
	Role     identity.Role
	Track    identity.Track
	Cohort   int
	Nickname string
	Mode     ProvisionMode
}

// CreateAccountResult is returned by [Engine.CreateAccount].
// TempPassword is set only in password mode; the invite fields only in
// invite mode.
type CreateAccountResult struct {
	Account AccountRecord

	TempPassword string

	InviteToken     string
	InviteLink      string
	InviteExpiresAt time.Time
}

// ActivateRequest is the input for [Engine.Activate]. Username is
// optional; when empty the generated username assigned at provisioning
// time is kept.
type ActivateRequest struct {
	InviteToken string
	Password    string
	Username    string
	Nickname    string
}

// AccountSummary is one row of [Engine.Accounts]. For inactive
// accounts the pending invite is attached when one exists; InviteLink
// is empty when the cached raw token already aged out.
type AccountSummary struct {
	Account AccountRecord

	InviteLink      string
	InviteExpiresAt *time.Time
}

// UpdateAccountRequest is the input for [Engine.UpdateAccount]. Nil
// fields are left unchanged. Changing the cohort allocates a fresh
// ordinal in the new cohort; changing role, track, or cohort recomputes
// the public code.
type UpdateAccountRequest struct {
	Role     *identity.Role
	Track    *identity.Track
	Cohort   *int
	Nickname *string
}
