// Package session stores candidate login sessions. Sessions are ephemeral
// and expire server-side; the Redis implementation is used when a Redis
// connection is configured, the in-memory one otherwise.
package session

import (
	"context"

	"conosco/internal/document"
)

// Store persists sessions keyed by their opaque token.
type Store interface {
	// Save stores the session until its expiry.
	Save(ctx context.Context, session document.Session) error

	// Find returns the session for token, or sentinel.ErrNotFound when the
	// token is unknown or expired.
	Find(ctx context.Context, token string) (*document.Session, error)

	// Delete removes a session, logging the candidate out.
	Delete(ctx context.Context, token string) error
}
