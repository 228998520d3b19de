package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	minCohort  = 0
	maxCohort  = 9
	minOrdinal = 1
	maxOrdinal = 99
)

var (
	// ErrCohortOutOfRange is returned for cohorts outside [0,9]. This is
	// a caller/request error.
	ErrCohortOutOfRange = errors.New("cohort must be between 0 and 9")
	// ErrOrdinalOverflow is returned for ordinals outside [1,99]. The
	// ordinal comes from the sequence allocator, never from user input,
	// so an overflow is a capacity invariant violation rather than a
	// request error.
	ErrOrdinalOverflow = errors.New("cohort ordinal is out of supported range")
	// ErrInvalidLookupCode is returned when a raw lookup string does not
	// normalize to the #LL### shape.
	ErrInvalidLookupCode = errors.New("invalid public code format")
)

var lookupPattern = regexp.MustCompile(`^#[A-Z]{2}\d{3}$`)

// GeneratePublicCode derives the human-facing member code from role,
// track, cohort, and the ordinal allocated within that cohort.
//
// The result has the fixed form "#" + two-letter prefix + cohort digit
// + zero-padded two-digit ordinal, e.g. "#SP401". The function is pure
// and deterministic; callers recompute and overwrite the stored code
// whenever any input changes.
func GeneratePublicCode(role Role, track Track, cohort, ordinal int) (string, error) {
	if cohort < minCohort || cohort > maxCohort {
		return "", ErrCohortOutOfRange
	}
	if ordinal < minOrdinal || ordinal > maxOrdinal {
		return "", ErrOrdinalOverflow
	}
	return fmt.Sprintf("#%s%d%02d", prefixFor(role, track), cohort, ordinal), nil
}

// ResolveTrack enforces the track invariant centrally: only USER
// accounts may carry a non-default track. Any other role is forced to
// [TrackNone] regardless of the requested value, so no call path can
// bypass the rule.
func ResolveTrack(role Role, requested Track) Track {
	if role != RoleUser {
		return TrackNone
	}
	if requested == "" {
		return TrackNone
	}
	return requested
}

// NormalizeLookupCode canonicalizes a raw public-code lookup string:
// trims whitespace, uppercases, ensures a leading '#', and validates
// the #LL### shape.
func NormalizeLookupCode(raw string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if !strings.HasPrefix(normalized, "#") {
		normalized = "#" + normalized
	}
	if !lookupPattern.MatchString(normalized) {
		return "", ErrInvalidLookupCode
	}
	return normalized, nil
}

func prefixFor(role Role, track Track) string {
	switch role {
	case RoleOrganizer:
		return "OR"
	case RoleAdmin:
		return "AD"
	default:
		switch track {
		case TrackFlag:
			return "FL"
		case TrackSpin:
			return "SP"
		default:
			return "NO"
		}
	}
}
