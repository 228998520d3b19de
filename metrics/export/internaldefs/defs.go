package internaldefs

import (
	authkit "github.com/clubforge/authkit"
)

// CounterDef defines a public type used by authkit APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authkit APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the provisioning engine.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login attempts."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login attempts."},
	{ID: authkit.MetricRefreshSuccess, Name: "authkit_refresh_success_total", Help: "Successful refresh operations."},
	{ID: authkit.MetricRefreshFailure, Name: "authkit_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authkit.MetricRefreshBlocked, Name: "authkit_refresh_blocked_total", Help: "Refresh attempts blocked by the logout denylist."},
	{ID: authkit.MetricTokenValidationFailed, Name: "authkit_token_validation_failed_total", Help: "Token verifications that failed."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Logout operations."},
	{ID: authkit.MetricAccountCreated, Name: "authkit_account_created_total", Help: "Provisioned accounts."},
	{ID: authkit.MetricAccountActivated, Name: "authkit_account_activated_total", Help: "Activated accounts."},
	{ID: authkit.MetricActivationFailed, Name: "authkit_activation_failed_total", Help: "Failed activation attempts."},
	{ID: authkit.MetricInviteIssued, Name: "authkit_invite_issued_total", Help: "Issued invite links."},
	{ID: authkit.MetricUsernameCollision, Name: "authkit_username_collision_total", Help: "Username claims rejected by the uniqueness constraint."},
	{ID: authkit.MetricPasswordReset, Name: "authkit_password_reset_total", Help: "Administrative password resets."},
	{ID: authkit.MetricPasswordChanged, Name: "authkit_password_changed_total", Help: "Self-service password changes."},
	{ID: authkit.MetricRoleChanged, Name: "authkit_role_changed_total", Help: "Role change operations."},
	{ID: authkit.MetricAccountUpdated, Name: "authkit_account_updated_total", Help: "Account update operations."},
	{ID: authkit.MetricAccountDeleted, Name: "authkit_account_deleted_total", Help: "Account delete operations."},
	{ID: authkit.MetricSelfActionBlocked, Name: "authkit_self_action_blocked_total", Help: "Administrative self-actions blocked."},
}

// HistogramDefs is an exported constant or variable used by the provisioning engine.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricLoginLatency, Name: "authkit_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the provisioning engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the provisioning engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
