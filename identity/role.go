package identity

import "errors"

// ErrUnknownRole is returned when a role string does not name a known role.
var ErrUnknownRole = errors.New("unknown role")

// ErrUnknownTrack is returned when a track string does not name a known track.
var ErrUnknownTrack = errors.New("unknown track")

// Role is the account role carried in token claims and account records.
//
// Role values are intended to be configured during provisioning and then treated as immutable unless changed through the admin update flow.
type Role string

const (
	// RoleUser is a regular club member.
	RoleUser Role = "USER"
	// RoleOrganizer is a club organizer.
	RoleOrganizer Role = "ORGANIZER"
	// RoleAdmin is a service administrator.
	RoleAdmin Role = "ADMIN"
)

// Track is the membership track of a USER account. Non-USER roles
// always carry [TrackNone].
type Track string

const (
	// TrackFlag is the flag-football track.
	TrackFlag Track = "FL"
	// TrackSpin is the spinning track.
	TrackSpin Track = "SP"
	// TrackNone is the default track.
	TrackNone Track = "NO"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return Role(raw), nil
	default:
		return "", ErrUnknownRole
	}
}

// ParseTrack validates a raw track string.
func ParseTrack(raw string) (Track, error) {
	switch Track(raw) {
	case TrackFlag, TrackSpin, TrackNone:
		return Track(raw), nil
	default:
		return "", ErrUnknownTrack
	}
}

// Level returns the position of the role in the access hierarchy.
// Higher levels include every capability of lower ones.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleOrganizer:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the role satisfies the required role under
// the hierarchy comparison. This is the only authorization primitive
// owned by the core; coarse path matching, if any, belongs to the
// embedding HTTP layer and is evaluated before this check.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}
