package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// ResetTokenRepository persists password reset tokens, one row per account.
type ResetTokenRepository interface {
	// FindByToken returns domain.ErrTokenNotFound when no row carries token.
	FindByToken(ctx context.Context, token string) (*domain.ResetToken, error)

	// ReplaceForAccount updates the account's row in place, or inserts it when
	// none exists, leaving Used=false.
	ReplaceForAccount(ctx context.Context, accountID int64, token string, expiry time.Time) (*domain.ResetToken, error)

	// MarkUsed flips Used only when it is still false. It returns
	// domain.ErrTokenUsed when no unused row matched.
	MarkUsed(ctx context.Context, token string) error
}
