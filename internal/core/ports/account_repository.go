package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// AccountRepository persists accounts. Every read returns the account with its
// role set already resolved.
type AccountRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)

	// Insert assigns an ID and persists the account. A unique-key violation is
	// returned as *domain.DuplicateKeyError.
	Insert(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// UpdatePassword replaces the hash and bumps UpdatedAt.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
