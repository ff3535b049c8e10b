package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/infrastructure/db/memory"
)

// racingRoleRepo reports the role missing on the first read and rejects the
// insert as a duplicate, as if another writer committed in between.
type racingRoleRepo struct {
	reads     int
	reReadErr error
}

func (r *racingRoleRepo) FindByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.reads++
	if r.reads == 1 {
		return nil, domain.ErrRoleNotFound
	}
	if r.reReadErr != nil {
		return nil, r.reReadErr
	}
	return &domain.Role{ID: 42, Name: name}, nil
}

func (r *racingRoleRepo) Insert(_ context.Context, _ domain.RoleName) (*domain.Role, error) {
	return nil, &domain.DuplicateKeyError{Field: "name"}
}

func TestRoleRegistry_GetOrCreate_CreatesOnce(t *testing.T) {
	store := memory.New()
	reg := NewRoleRegistry(store.Roles(), zerolog.Nop())
	ctx := context.Background()

	first, err := reg.GetOrCreate(ctx, domain.RoleVendor)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	second, err := reg.GetOrCreate(ctx, domain.RoleVendor)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same role id, got %d and %d", first.ID, second.ID)
	}
	if n := store.Roles().Count(ctx); n != 1 {
		t.Fatalf("expected 1 role row, got %d", n)
	}
}

func TestRoleRegistry_GetOrCreate_Concurrent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	const callers = 16
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate registries so no caller is served from another's cache.
			reg := NewRoleRegistry(store.Roles(), zerolog.Nop())
			role, err := reg.GetOrCreate(ctx, domain.RoleAdmin)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			ids[i] = role.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("callers disagree on role id: %v", ids)
		}
	}
	if n := store.Roles().Count(ctx); n != 1 {
		t.Fatalf("expected 1 role row, got %d", n)
	}
}

func TestRoleRegistry_GetOrCreate_DuplicateKeyRereads(t *testing.T) {
	repo := &racingRoleRepo{}
	reg := NewRoleRegistry(repo, zerolog.Nop())

	role, err := reg.GetOrCreate(context.Background(), domain.RoleCustomer)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if role.ID != 42 || role.Name != domain.RoleCustomer {
		t.Fatalf("expected re-read role, got %+v", role)
	}
}

func TestRoleRegistry_GetOrCreate_RereadMissIsProvisioningError(t *testing.T) {
	repo := &racingRoleRepo{reReadErr: domain.ErrRoleNotFound}
	reg := NewRoleRegistry(repo, zerolog.Nop())

	_, err := reg.GetOrCreate(context.Background(), domain.RoleCustomer)
	if !errors.Is(err, domain.ErrProvisioning) {
		t.Fatalf("expected ErrProvisioning, got %v", err)
	}
}

func TestRoleRegistry_GetOrCreate_InvalidName(t *testing.T) {
	reg := NewRoleRegistry(memory.New().Roles(), zerolog.Nop())

	_, err := reg.GetOrCreate(context.Background(), domain.RoleName("SUPERUSER"))
	var invalid *domain.InvalidRoleError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidRoleError, got %v", err)
	}
}

func TestRoleRegistry_Resolve(t *testing.T) {
	reg := NewRoleRegistry(memory.New().Roles(), zerolog.Nop())

	role, err := reg.Resolve(context.Background(), "role_admin")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if role.Name != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", role.Name)
	}
	if _, err := reg.Resolve(context.Background(), "root"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRoleRegistry_EnsureAll(t *testing.T) {
	store := memory.New()
	reg := NewRoleRegistry(store.Roles(), zerolog.Nop())
	ctx := context.Background()

	if err := reg.EnsureAll(ctx); err != nil {
		t.Fatalf("EnsureAll returned error: %v", err)
	}
	if err := reg.EnsureAll(ctx); err != nil {
		t.Fatalf("second EnsureAll returned error: %v", err)
	}
	if n := store.Roles().Count(ctx); n != len(domain.AllRoleNames()) {
		t.Fatalf("expected %d roles, got %d", len(domain.AllRoleNames()), n)
	}
}
