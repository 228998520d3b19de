package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubforge/authkit/identity"
)

// LookupByPublicCode resolves a member by their public code. The input
// is normalized first ("fl101" and "#FL101" address the same account),
// so callers can pass codes exactly as typed.
func (e *Engine) LookupByPublicCode(ctx context.Context, rawCode string) (*AccountRecord, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	code, err := identity.NormalizeLookupCode(rawCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	account, err := e.accounts.FindByPublicCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return account, nil
}
