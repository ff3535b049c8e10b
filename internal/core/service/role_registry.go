package service

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// RoleRegistry resolves role names to their durable records, creating them on
// first use. Concurrent callers converge on the same row without locking.
type RoleRegistry struct {
	repo  ports.RoleRepository
	cache *lru.Cache[domain.RoleName, domain.Role]
	log   zerolog.Logger
}

func NewRoleRegistry(repo ports.RoleRepository, log zerolog.Logger) *RoleRegistry {
	// The enumeration is closed, so the cache can never need more slots.
	cache, _ := lru.New[domain.RoleName, domain.Role](len(domain.AllRoleNames()))
	return &RoleRegistry{repo: repo, cache: cache, log: log}
}

// GetOrCreate returns the role named name, inserting it if absent. A
// duplicate-key failure means another writer won the race and is resolved by
// re-reading.
func (r *RoleRegistry) GetOrCreate(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	if !name.Valid() {
		return nil, &domain.InvalidRoleError{Role: string(name)}
	}
	if role, ok := r.cache.Get(name); ok {
		return &role, nil
	}

	role, err := r.repo.FindByName(ctx, name)
	if err == nil {
		return r.remember(role), nil
	}
	if !errors.Is(err, domain.ErrRoleNotFound) {
		return nil, oops.Code("ROLE_LOOKUP_FAILED").With("role", name).Wrap(err)
	}

	role, err = r.repo.Insert(ctx, name)
	if err == nil {
		r.log.Info().Str("role", name.String()).Int64("role_id", role.ID).Msg("role created")
		return r.remember(role), nil
	}
	if _, dup := domain.AsDuplicateKey(err); !dup {
		return nil, oops.Code("ROLE_CREATE_FAILED").With("role", name).Wrap(err)
	}

	r.log.Debug().Str("role", name.String()).Msg("role created concurrently, re-reading")
	role, err = r.repo.FindByName(ctx, name)
	if err != nil {
		return nil, oops.Code("ROLE_PROVISIONING_FAILED").
			With("role", name).
			Wrapf(errors.Join(domain.ErrProvisioning, err), "re-read after conflict")
	}
	return r.remember(role), nil
}

// Resolve parses raw and delegates to GetOrCreate.
func (r *RoleRegistry) Resolve(ctx context.Context, raw string) (*domain.Role, error) {
	name, err := domain.ParseRoleName(raw)
	if err != nil {
		return nil, err
	}
	return r.GetOrCreate(ctx, name)
}

// EnsureAll provisions every role in the enumeration. A failure on one role is
// logged and does not stop the others; the joined error is returned.
func (r *RoleRegistry) EnsureAll(ctx context.Context) error {
	var errs []error
	for _, name := range domain.AllRoleNames() {
		if _, err := r.GetOrCreate(ctx, name); err != nil {
			r.log.Error().Err(err).Str("role", name.String()).Msg("role initialization failed")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		r.log.Info().Msg("roles initialization completed")
	}
	return errors.Join(errs...)
}

func (r *RoleRegistry) remember(role *domain.Role) *domain.Role {
	r.cache.Add(role.Name, *role)
	out := *role
	return &out
}
