package ports

import (
	"context"
	"time"
)

// RefreshRegistry tracks the set of refresh token ids valid for each subject.
// Every login adds one id, so a subject signed in on several devices holds
// several ids at once. Rotating a refresh token swaps its own id and leaves
// the subject's other ids alone.
type RefreshRegistry interface {
	// Register adds id to the subject's set of valid refresh token ids.
	Register(ctx context.Context, subject, id string, ttl time.Duration) error
	// Rotate atomically replaces oldID with newID in the subject's set. It
	// returns false when oldID is not in the set (replayed or revoked token).
	Rotate(ctx context.Context, subject, oldID, newID string, ttl time.Duration) (bool, error)
	// Revoke retires every refresh token id of the subject.
	Revoke(ctx context.Context, subject string) error
}
