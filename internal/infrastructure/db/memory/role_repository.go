package memory

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository over a Store.
type RoleRepository struct {
	s *Store
}

func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	defer r.s.lock(ctx)()
	role, ok := r.s.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	out := *role
	return &out, nil
}

func (r *RoleRepository) Insert(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	defer r.s.lock(ctx)()
	if _, ok := r.s.roles[name]; ok {
		return nil, &domain.DuplicateKeyError{Field: "name"}
	}
	role := &domain.Role{ID: r.s.nextID("roles"), Name: name}
	r.s.roles[name] = role
	out := *role
	return &out, nil
}

// Count reports how many role rows exist.
func (r *RoleRepository) Count(ctx context.Context) int {
	defer r.s.lock(ctx)()
	return len(r.s.roles)
}
