package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clubforge/authkit/identity"
	"github.com/clubforge/authkit/invite"
	"github.com/clubforge/authkit/jwt"
	"github.com/clubforge/authkit/revoke"
	"github.com/clubforge/authkit/sequence"
)

// Engine defines a public type used by authkit APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	accounts   AccountStore
	hasher     PasswordHasher
	jwtManager *jwt.Manager
	revoker    *revoke.Store
	sequences  *sequence.Allocator
	invites    *invite.Manager
	audit      *auditDispatcher
	metrics    *Metrics
	now        func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// requireAdmin loads the acting account and checks it holds at least the
// ADMIN role. Every administrative flow goes through this gate.
func (e *Engine) requireAdmin(ctx context.Context, actorID uuid.UUID) (*AccountRecord, error) {
	actor, err := e.accounts.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !actor.Active || !actor.Role.AtLeast(identity.RoleAdmin) {
		return nil, ErrPermissionDenied
	}
	return actor, nil
}

// loadAccount fetches the target of an administrative operation.
func (e *Engine) loadAccount(ctx context.Context, accountID uuid.UUID) (*AccountRecord, error) {
	record, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

// jwtTelemetry forwards token verification failures into the engine's
// metrics and audit stream. Reasons only, never token material. The
// request context rides along so audit events keep the caller's IP.
type jwtTelemetry struct {
	engine *Engine
}

func (t jwtTelemetry) TokenValidationFailed(ctx context.Context, reason string) {
	t.engine.metricInc(MetricTokenValidationFailed)
	t.engine.emitAudit(ctx, auditEventTokenValidationFailed, false, "", "", nil, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
}

// revokeTelemetry forwards denylist hits. The hashed key identifies the
// token for correlation without exposing it.
type revokeTelemetry struct {
	engine *Engine
}

func (t revokeTelemetry) RefreshBlocked(ctx context.Context, hashedKey string) {
	t.engine.metricInc(MetricRefreshBlocked)
	t.engine.emitAudit(ctx, auditEventRefreshBlocked, false, "", "", nil, func() map[string]string {
		return map[string]string{
			"token_hash": hashedKey,
		}
	})
}
