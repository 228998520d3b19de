package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubforge/authkit/jwt"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil || e.hasher == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	started := e.now()

	if username == "" || password == "" {
		return nil, e.loginFailure(ctx, username, "empty_input")
	}

	account, err := e.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, e.loginFailure(ctx, username, "account_not_found")
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !account.Active {
		return nil, e.loginFailure(ctx, username, "account_inactive")
	}

	ok, err := e.hasher.Matches(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, username, "password_mismatch")
	}

	if e.config.Password.UpgradeOnLogin {
		if rehasher, isRehasher := e.hasher.(interface {
			NeedsRehash(encodedHash string) (bool, error)
		}); isRehasher {
			if upgrade, rehashErr := rehasher.NeedsRehash(account.PasswordHash); rehashErr == nil && upgrade {
				if newHash, hashErr := e.hasher.Hash(password); hashErr == nil {
					account.PasswordHash = newHash
				}
			}
		}
	}

	loginAt := e.now().UTC()
	account.LastLoginAt = &loginAt
	account.UpdatedAt = loginAt
	if err := e.accounts.Update(ctx, *account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	access, err := e.jwtManager.IssueAccessToken(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := e.jwtManager.IssueRefreshToken(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, e.now().Sub(started))
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID.String(), "", nil, func() map[string]string {
		return map[string]string{
			"username": account.Username,
			"role":     string(account.Role),
		}
	})

	return &LoginResult{
		AccessToken:         access.Value,
		AccessExpiresAt:     access.ExpiresAt,
		RefreshToken:        refresh.Value,
		RefreshExpiresAt:    refresh.ExpiresAt,
		AccountID:           account.ID,
		Username:            account.Username,
		Role:                account.Role,
		ForcePasswordChange: account.ForcePasswordChange,
	}, nil
}

// loginFailure collapses every login failure into the one public error
// so callers cannot distinguish unknown accounts from bad passwords.
func (e *Engine) loginFailure(ctx context.Context, username, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"username": username,
			"reason":   reason,
		}
	})
	return ErrInvalidCredentials
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.jwtManager == nil || e.revoker == nil {
		return nil, ErrEngineNotReady
	}

	principal, err := e.jwtManager.VerifyAndParse(ctx, refreshToken, jwt.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": err.Error(),
			}
		})
		return nil, ErrRefreshInvalid
	}

	if err := e.revoker.RejectIfLoggedOut(ctx, refreshToken); err != nil {
		return nil, err
	}

	account, err := e.accounts.FindByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !account.Active {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	// Role changes since the refresh token was minted take effect here:
	// the new access token always carries the stored role.
	access, err := e.jwtManager.IssueAccessToken(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, account.ID.String(), "", nil, nil)

	return &RefreshResult{
		AccessToken:     access.Value,
		AccessExpiresAt: access.ExpiresAt,
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil || e.revoker == nil {
		return ErrEngineNotReady
	}

	principal, err := e.jwtManager.VerifyAndParse(ctx, refreshToken, jwt.KindRefresh)
	if err != nil {
		return ErrRefreshInvalid
	}

	if _, err := e.revoker.MarkLoggedOut(ctx, refreshToken, principal.ExpiresAt); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, principal.AccountID.String(), "", nil, nil)

	return nil
}
