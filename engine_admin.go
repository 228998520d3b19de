package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
	"github.com/clubforge/authkit/internal/secrets"
)

// Accounts describes the accounts operation and its observable behavior.
//
// Accounts may return an error when input validation, dependency calls, or security checks fail.
// Accounts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Accounts(ctx context.Context, actorID uuid.UUID) ([]AccountSummary, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	if _, err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	records, err := e.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	summaries := make([]AccountSummary, 0, len(records))
	for _, record := range records {
		summary := AccountSummary{Account: record}

		// Inactive accounts are still waiting on activation; attach
		// the pending invite so the admin UI can re-surface the link.
		if !record.Active && e.invites != nil {
			active, err := e.invites.FindActiveInvite(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			if active != nil {
				expiresAt := active.ExpiresAt
				summary.InviteExpiresAt = &expiresAt
				if active.RawToken != "" {
					summary.InviteLink = e.inviteLink(active.RawToken)
				}
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, actorID, accountID uuid.UUID) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}

	actor, err := e.requireAdmin(ctx, actorID)
	if err != nil {
		return "", err
	}
	if actor.ID == accountID {
		return "", e.selfActionBlocked(ctx, actor.ID, "reset_password")
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	temp, err := secrets.RandomPassword(e.config.Account.TempPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := e.hasher.Hash(temp)
	if err != nil {
		return "", err
	}

	account.PasswordHash = hash
	account.ForcePasswordChange = true
	account.UpdatedAt = e.now().UTC()

	if err := e.accounts.Update(ctx, *account); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricPasswordReset)
	e.emitAudit(ctx, auditEventPasswordReset, true, account.ID.String(), actor.ID.String(), nil, nil)

	return temp, nil
}

// UpdateRole describes the updaterole operation and its observable behavior.
//
// UpdateRole may return an error when input validation, dependency calls, or security checks fail.
// UpdateRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateRole(ctx context.Context, actorID, accountID uuid.UUID, role identity.Role) (*AccountRecord, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	actor, err := e.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID == accountID {
		return nil, e.selfActionBlocked(ctx, actor.ID, "change_own_role")
	}

	if role.Level() == 0 {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, string(role))
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.Role == role {
		return account, nil
	}

	previous := account.Role
	account.Role = role
	account.Track = identity.ResolveTrack(role, account.Track)

	// The code prefix is a function of role and track; placement in the
	// cohort is untouched, so the existing ordinal is kept.
	code, err := identity.GeneratePublicCode(account.Role, account.Track, account.Cohort, account.CohortOrdinal)
	if err != nil {
		return nil, err
	}
	account.PublicCode = code
	account.UpdatedAt = e.now().UTC()

	if err := e.accounts.Update(ctx, *account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChanged, true, account.ID.String(), actor.ID.String(), nil, func() map[string]string {
		return map[string]string{
			"from":        string(previous),
			"to":          string(role),
			"public_code": account.PublicCode,
		}
	})

	return account, nil
}

// UpdateAccount describes the updateaccount operation and its observable behavior.
//
// UpdateAccount may return an error when input validation, dependency calls, or security checks fail.
// UpdateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateAccount(ctx context.Context, actorID, accountID uuid.UUID, req UpdateAccountRequest) (*AccountRecord, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	actor, err := e.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && *req.Role != account.Role && actor.ID == accountID {
		return nil, e.selfActionBlocked(ctx, actor.ID, "change_own_role")
	}

	recompute := false

	if req.Role != nil && *req.Role != account.Role {
		if req.Role.Level() == 0 {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, string(*req.Role))
		}
		account.Role = *req.Role
		recompute = true
	}

	if req.Track != nil && *req.Track != account.Track {
		if account.Role == identity.RoleUser {
			if _, err := identity.ParseTrack(string(*req.Track)); err != nil {
				return nil, fmt.Errorf("%w: unknown track %q", ErrInvalidRequest, string(*req.Track))
			}
		}
		account.Track = *req.Track
		recompute = true
	}
	account.Track = identity.ResolveTrack(account.Role, account.Track)

	if req.Cohort != nil && *req.Cohort != account.Cohort {
		if *req.Cohort < 0 || *req.Cohort > 9 {
			return nil, fmt.Errorf("%w: cohort %d out of range", ErrInvalidRequest, *req.Cohort)
		}
		// Moving cohorts means a new position: a fresh ordinal is
		// drawn in the target cohort, the old one is never reused.
		code, ordinal, err := e.allocateCode(ctx, account.Role, account.Track, *req.Cohort)
		if err != nil {
			return nil, err
		}
		account.Cohort = *req.Cohort
		account.CohortOrdinal = ordinal
		account.PublicCode = code
		recompute = false
	}

	if recompute {
		code, err := identity.GeneratePublicCode(account.Role, account.Track, account.Cohort, account.CohortOrdinal)
		if err != nil {
			return nil, err
		}
		account.PublicCode = code
	}

	if req.Nickname != nil {
		if *req.Nickname != "" && !nicknamePattern.MatchString(*req.Nickname) {
			return nil, fmt.Errorf("%w: malformed nickname", ErrInvalidRequest)
		}
		account.Nickname = *req.Nickname
	}

	account.UpdatedAt = e.now().UTC()

	if err := e.accounts.Update(ctx, *account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountUpdated)
	e.emitAudit(ctx, auditEventAccountUpdated, true, account.ID.String(), actor.ID.String(), nil, func() map[string]string {
		return map[string]string{
			"public_code": account.PublicCode,
		}
	})

	return account, nil
}

// DeleteAccount describes the deleteaccount operation and its observable behavior.
//
// DeleteAccount may return an error when input validation, dependency calls, or security checks fail.
// DeleteAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteAccount(ctx context.Context, actorID, accountID uuid.UUID) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	actor, err := e.requireAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.ID == accountID {
		return e.selfActionBlocked(ctx, actor.ID, "delete_own_account")
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	// Invite records and their cache shadows go first so no dangling
	// invite can activate a deleted account.
	if e.invites != nil {
		if err := e.invites.DeleteAllForAccount(ctx, account.ID); err != nil {
			return err
		}
	}

	if err := e.accounts.Delete(ctx, account.ID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, account.ID.String(), actor.ID.String(), nil, func() map[string]string {
		return map[string]string{
			"username": account.Username,
		}
	})

	return nil
}

func (e *Engine) selfActionBlocked(ctx context.Context, actorID uuid.UUID, action string) error {
	e.metricInc(MetricSelfActionBlocked)
	e.emitAudit(ctx, auditEventSelfActionBlocked, false, actorID.String(), actorID.String(), ErrSelfActionForbidden, func() map[string]string {
		return map[string]string{
			"action": action,
		}
	})
	return ErrSelfActionForbidden
}
