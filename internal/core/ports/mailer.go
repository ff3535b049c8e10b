package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, account *domain.Account, token string, validFor time.Duration) error
}
