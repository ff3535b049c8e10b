package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RoleRepository persists role records, unique by name.
type RoleRepository interface {
	// FindByName returns domain.ErrRoleNotFound when no row exists.
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)

	// Insert creates the row, or fails with *domain.DuplicateKeyError when a
	// concurrent writer got there first.
	Insert(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}
