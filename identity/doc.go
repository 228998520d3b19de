// Package identity holds the pure domain vocabulary of the club
// membership model: account roles, membership tracks, the role
// hierarchy policy, and the deterministic public-code derivation used
// for human-facing member lookup.
package identity
