// Package verifier checks that a platform user belongs to the project's
// community before a join task is rewarded.
package verifier

import (
	"context"
	"strings"
)

type Verifier interface {
	VerifyMembership(ctx context.Context, platformUserID string) (bool, error)
}

// Trusted accepts any non-empty user id. It serves platforms whose tasks
// are confirmed by the OAuth callback itself (X, Spotify).
type Trusted struct{}

func (Trusted) VerifyMembership(_ context.Context, platformUserID string) (bool, error) {
	return strings.TrimSpace(platformUserID) != "", nil
}

// Func adapts a function to the Verifier interface.
type Func func(ctx context.Context, platformUserID string) (bool, error)

func (f Func) VerifyMembership(ctx context.Context, platformUserID string) (bool, error) {
	return f(ctx, platformUserID)
}
