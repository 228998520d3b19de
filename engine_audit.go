package authkit

import (
	"context"
	"errors"

	"github.com/clubforge/authkit/invite"
	"github.com/clubforge/authkit/revoke"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshBlocked        = "refresh_blocked"
	auditEventLogout                = "logout"
	auditEventTokenValidationFailed = "token_validation_failed"
	auditEventAccountCreated        = "account_created"
	auditEventAccountActivated      = "account_activated"
	auditEventActivationFailed      = "activation_failed"
	auditEventInviteIssued          = "invite_issued"
	auditEventPasswordReset         = "password_reset"
	auditEventPasswordChanged       = "password_changed"
	auditEventRoleChanged           = "role_changed"
	auditEventAccountUpdated        = "account_updated"
	auditEventAccountDeleted        = "account_deleted"
	auditEventSelfActionBlocked     = "self_action_blocked"
	auditEventBootstrapAdmin        = "bootstrap_admin_created"
)

// AuditErrorCode defines a public type used by authkit APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRefreshInvalid      AuditErrorCode = "refresh_invalid"
	auditErrRefreshRevoked      AuditErrorCode = "refresh_revoked"
	auditErrAccountNotFound     AuditErrorCode = "account_not_found"
	auditErrUsernameUnavailable AuditErrorCode = "username_unavailable"
	auditErrInviteInvalid       AuditErrorCode = "invite_invalid"
	auditErrInvalidRequest      AuditErrorCode = "invalid_request"
	auditErrPermissionDenied    AuditErrorCode = "permission_denied"
	auditErrSelfAction          AuditErrorCode = "self_action_forbidden"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	actorID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		ActorID:   actorID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, revoke.ErrRefreshRevoked):
		return auditErrRefreshRevoked
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrUsernameUnavailable):
		return auditErrUsernameUnavailable
	case errors.Is(err, invite.ErrInviteInvalid):
		return auditErrInviteInvalid
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrSelfActionForbidden):
		return auditErrSelfAction
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
