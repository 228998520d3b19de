package authkit

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the provisioning engine.
	//
	// It is the single error returned for every login failure: unknown
	// username, wrong password, and deactivated account all collapse into
	// it so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshInvalid is an exported constant or variable used by the provisioning engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrAccountNotFound is an exported constant or variable used by the provisioning engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameUnavailable is an exported constant or variable used by the provisioning engine.
	//
	// Account stores return it on a uniqueness violation so that a
	// concurrent claim of the same username surfaces identically to a
	// pre-checked collision.
	ErrUsernameUnavailable = errors.New("username unavailable")
	// ErrInvalidRequest is an exported constant or variable used by the provisioning engine.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPermissionDenied is an exported constant or variable used by the provisioning engine.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSelfActionForbidden is an exported constant or variable used by the provisioning engine.
	ErrSelfActionForbidden = errors.New("administrators cannot perform this action on their own account")
	// ErrStoreUnavailable is an exported constant or variable used by the provisioning engine.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the provisioning engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
