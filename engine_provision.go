package authkit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
	"github.com/clubforge/authkit/internal/secrets"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,32}$`)
	nicknamePattern = regexp.MustCompile(`^[\p{L}\p{N} _.-]{1,40}$`)
)

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateAccount(ctx context.Context, actorID uuid.UUID, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || e.hasher == nil || e.sequences == nil {
		return nil, ErrEngineNotReady
	}

	actor, err := e.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if req.Role.Level() == 0 {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, string(req.Role))
	}
	if req.Role == identity.RoleUser && req.Track != "" {
		if _, err := identity.ParseTrack(string(req.Track)); err != nil {
			return nil, fmt.Errorf("%w: unknown track %q", ErrInvalidRequest, string(req.Track))
		}
	}
	if req.Cohort < 0 || req.Cohort > 9 {
		return nil, fmt.Errorf("%w: cohort %d out of range", ErrInvalidRequest, req.Cohort)
	}
	if req.Nickname != "" && !nicknamePattern.MatchString(req.Nickname) {
		return nil, fmt.Errorf("%w: malformed nickname", ErrInvalidRequest)
	}

	track := identity.ResolveTrack(req.Role, req.Track)

	seq, err := e.sequences.NextGlobalSequence(ctx)
	if err != nil {
		return nil, err
	}
	username := fmt.Sprintf("user_%02d", seq)

	code, ordinal, err := e.allocateCode(ctx, req.Role, track, req.Cohort)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	record := AccountRecord{
		ID:            uuid.New(),
		Username:      username,
		Nickname:      req.Nickname,
		Role:          req.Role,
		Track:         track,
		Cohort:        req.Cohort,
		CohortOrdinal: ordinal,
		PublicCode:    code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result := &CreateAccountResult{}

	switch req.Mode {
	case ProvisionPassword:
		temp, err := secrets.RandomPassword(e.config.Account.TempPasswordLength)
		if err != nil {
			return nil, err
		}
		hash, err := e.hasher.Hash(temp)
		if err != nil {
			return nil, err
		}
		record.PasswordHash = hash
		record.Active = true
		record.ForcePasswordChange = true
		result.TempPassword = temp
	case ProvisionInvite:
		// The placeholder hash keeps the account unusable until
		// activation sets a real password.
		placeholder, err := secrets.RandomPassword(32)
		if err != nil {
			return nil, err
		}
		hash, err := e.hasher.Hash(placeholder)
		if err != nil {
			return nil, err
		}
		record.PasswordHash = hash
		record.Active = false
	default:
		return nil, fmt.Errorf("%w: unknown provisioning mode", ErrInvalidRequest)
	}

	if err := e.accounts.Create(ctx, record); err != nil {
		if errors.Is(err, ErrUsernameUnavailable) {
			e.metricInc(MetricUsernameCollision)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if req.Mode == ProvisionInvite {
		issued, err := e.invites.CreateInvite(ctx, record.ID, e.config.Invite.TTL)
		if err != nil {
			return nil, err
		}
		result.InviteToken = issued.RawToken
		result.InviteLink = e.inviteLink(issued.RawToken)
		result.InviteExpiresAt = issued.ExpiresAt

		e.metricInc(MetricInviteIssued)
		e.emitAudit(ctx, auditEventInviteIssued, true, record.ID.String(), actor.ID.String(), nil, func() map[string]string {
			return map[string]string{
				"expires_at": issued.ExpiresAt.UTC().Format(time.RFC3339),
			}
		})
	}

	result.Account = record

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, record.ID.String(), actor.ID.String(), nil, func() map[string]string {
		return map[string]string{
			"username":    record.Username,
			"role":        string(record.Role),
			"public_code": record.PublicCode,
		}
	})

	return result, nil
}

// Activate describes the activate operation and its observable behavior.
//
// Activate may return an error when input validation, dependency calls, or security checks fail.
// Activate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Activate(ctx context.Context, req ActivateRequest) (*AccountRecord, error) {
	if e == nil || e.hasher == nil || e.invites == nil {
		return nil, ErrEngineNotReady
	}

	if len(req.Password) < e.config.Password.MinLength {
		return nil, fmt.Errorf("%w: password shorter than %d characters", ErrInvalidRequest, e.config.Password.MinLength)
	}

	var username string
	if req.Username != "" {
		username = strings.ToLower(strings.TrimSpace(req.Username))
		if !usernamePattern.MatchString(username) {
			return nil, fmt.Errorf("%w: malformed username", ErrInvalidRequest)
		}
	}
	if req.Nickname != "" && !nicknamePattern.MatchString(req.Nickname) {
		return nil, fmt.Errorf("%w: malformed nickname", ErrInvalidRequest)
	}

	accountID, err := e.invites.ConsumeInvite(ctx, req.InviteToken)
	if err != nil {
		return nil, e.activationFailure(ctx, err)
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, e.activationFailure(ctx, err)
	}

	if username != "" && username != account.Username {
		existing, err := e.accounts.FindByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != account.ID:
			return nil, e.activationFailure(ctx, ErrUsernameUnavailable)
		case err != nil && !errors.Is(err, ErrAccountNotFound):
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		account.Username = username
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	account.PasswordHash = hash
	account.Active = true
	account.ForcePasswordChange = false
	if req.Nickname != "" {
		account.Nickname = req.Nickname
	}
	account.UpdatedAt = e.now().UTC()

	if err := e.accounts.Update(ctx, *account); err != nil {
		// A racing claim of the same username lands here through the
		// storage uniqueness constraint.
		if errors.Is(err, ErrUsernameUnavailable) {
			return nil, e.activationFailure(ctx, ErrUsernameUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountActivated)
	e.emitAudit(ctx, auditEventAccountActivated, true, account.ID.String(), "", nil, func() map[string]string {
		return map[string]string{
			"username": account.Username,
		}
	})

	return account, nil
}

func (e *Engine) activationFailure(ctx context.Context, err error) error {
	e.metricInc(MetricActivationFailed)
	if errors.Is(err, ErrUsernameUnavailable) {
		e.metricInc(MetricUsernameCollision)
	}
	e.emitAudit(ctx, auditEventActivationFailed, false, "", "", err, nil)
	return err
}

// EnsureBootstrapAdmin creates the configured initial administrator
// account when none exists yet. It is idempotent and safe to call on
// every startup; a concurrent replica winning the creation race is not
// an error.
func (e *Engine) EnsureBootstrapAdmin(ctx context.Context) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if !e.config.Account.Bootstrap.Enabled {
		return nil
	}

	boot := e.config.Account.Bootstrap

	if _, err := e.accounts.FindByUsername(ctx, boot.Username); err == nil {
		return nil
	} else if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hash, err := e.hasher.Hash(boot.Password)
	if err != nil {
		return err
	}

	code, ordinal, err := e.allocateCode(ctx, identity.RoleAdmin, identity.TrackNone, boot.Cohort)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	record := AccountRecord{
		ID:                  uuid.New(),
		Username:            boot.Username,
		PasswordHash:        hash,
		Role:                identity.RoleAdmin,
		Track:               identity.TrackNone,
		Cohort:              boot.Cohort,
		CohortOrdinal:       ordinal,
		PublicCode:          code,
		ForcePasswordChange: true,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := e.accounts.Create(ctx, record); err != nil {
		if errors.Is(err, ErrUsernameUnavailable) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventBootstrapAdmin, true, record.ID.String(), "", nil, func() map[string]string {
		return map[string]string{
			"username": record.Username,
		}
	})

	return nil
}

// allocateCode draws the next ordinal in the cohort and derives the
// public code from it. Ordinal exhaustion surfaces as
// [identity.ErrOrdinalOverflow]; the consumed ordinal is never reused.
func (e *Engine) allocateCode(ctx context.Context, role identity.Role, track identity.Track, cohort int) (string, int, error) {
	ordinal, err := e.sequences.NextCohortOrdinal(ctx, cohort)
	if err != nil {
		return "", 0, err
	}

	code, err := identity.GeneratePublicCode(role, track, cohort, int(ordinal))
	if err != nil {
		return "", 0, err
	}

	return code, int(ordinal), nil
}

func (e *Engine) inviteLink(rawToken string) string {
	if e.config.Invite.LinkBaseURL == "" {
		return rawToken
	}
	return e.config.Invite.LinkBaseURL + rawToken
}
