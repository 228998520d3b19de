package authkit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	if len(next) < e.config.Password.MinLength {
		return fmt.Errorf("%w: password shorter than %d characters", ErrInvalidRequest, e.config.Password.MinLength)
	}

	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	// A failed verification of the current password collapses into the
	// same generic error as a failed login.
	ok, err := e.hasher.Matches(current, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID.String(), "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"username": account.Username,
				"reason":   "password_mismatch",
			}
		})
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(next)
	if err != nil {
		return err
	}

	account.PasswordHash = hash
	account.ForcePasswordChange = false
	account.UpdatedAt = e.now().UTC()

	if err := e.accounts.Update(ctx, *account); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChanged, true, account.ID.String(), "", nil, nil)

	return nil
}
