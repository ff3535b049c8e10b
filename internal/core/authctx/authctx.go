// Package authctx carries the authenticated identity through a request's
// context.Context so callers never read it from ambient state.
package authctx

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	sessionKey
)

// WithIdentity binds identity and the session it came from to ctx.
func WithIdentity(ctx context.Context, identity *domain.Identity, sessionID string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, sessionKey, sessionID)
}

// Identity returns the bound identity, if any.
func Identity(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// SessionID returns the id of the session the identity was resolved from.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey).(string)
	return sid
}

// Current returns the bound identity or domain.ErrUnauthenticated.
func Current(ctx context.Context) (*domain.Identity, error) {
	if id, ok := Identity(ctx); ok {
		return id, nil
	}
	return nil, domain.ErrUnauthenticated
}
