// Package invite owns the single-use invite token lifecycle: random
// token generation, persistent hash records, the Redis cache shadow
// that lets an administrator re-display a pending invite link, and the
// at-most-once consumption contract that activates an account.
package invite
