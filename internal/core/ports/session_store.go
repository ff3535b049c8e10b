package ports

import (
	"context"
	"time"
)

// SessionStore keeps the single active session pointer per account.
type SessionStore interface {
	// Bind makes sessionID the account's active session, replacing any other.
	Bind(ctx context.Context, accountID int64, sessionID string, ttl time.Duration) error

	// Active returns the current session id, or "" when none is bound.
	Active(ctx context.Context, accountID int64) (string, error)

	// Release clears the pointer only if it still equals sessionID.
	Release(ctx context.Context, accountID int64, sessionID string) error
}
