// Package authkit provides the identity and session lifecycle engine for a
// club membership platform: HS256 JWT access/refresh tokens, a Redis-backed
// logout denylist, invite-based member provisioning, and cohort-scoped
// public member codes.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the persistence interfaces ([AccountStore], [PasswordHasher],
// invite.Store), and value types (LoginResult, MetricsSnapshot, etc.).
// Token mechanics, revocation, sequence allocation, invites, and the public
// code generator live in focused subpackages the Engine composes.
//
// # What this package must NOT do
//
//   - Persist accounts itself — durable storage stays behind [AccountStore].
//   - Expose raw tokens or credential hashes through audit or metrics.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Failure philosophy
//
// Login failures collapse into the single [ErrInvalidCredentials] so the
// surface never confirms whether a username exists. Everything else in the
// taxonomy is a distinct sentinel checked with errors.Is.
package authkit
