package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RegisterInput carries the raw registration fields from the transport layer.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AccountService provisions and looks up accounts.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)
	Lookup(ctx context.Context, username string) (*domain.Account, error)
}

// SessionService authenticates credentials and manages the resulting sessions.
type SessionService interface {
	Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error)
	Resolve(ctx context.Context, token string) (*domain.Identity, string, error)
	Logout(ctx context.Context, identity *domain.Identity, sessionID string) error
}

// PasswordResetService drives the reset token lifecycle.
type PasswordResetService interface {
	Issue(ctx context.Context, email string) error
	Validate(ctx context.Context, token string) (bool, error)
	Consume(ctx context.Context, token, newPassword string) error
}

// Guard answers authorization questions for an identity.
type Guard interface {
	Authorize(identity *domain.Identity, required []domain.RoleName) bool
	RedirectTarget(identity *domain.Identity) string
	Check(identity *domain.Identity, path string) error
}
