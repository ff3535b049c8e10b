package memory

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// AccountRepository implements ports.AccountRepository over a Store.
type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	defer r.s.lock(ctx)()
	return r.byUsername(username) != nil, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.s.lock(ctx)()
	return r.byEmail(email) != nil, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	a := r.byUsername(username)
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	a := r.byEmail(email)
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	if r.byUsername(account.Username) != nil {
		return nil, &domain.DuplicateKeyError{Field: "username"}
	}
	if r.byEmail(account.Email) != nil {
		return nil, &domain.DuplicateKeyError{Field: "email"}
	}

	stored := cloneAccount(account)
	stored.ID = r.s.nextID("accounts")
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	r.s.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = r.s.now()
	return nil
}

// SetFlags overwrites the account-state flags. Used to exercise login
// rejection for disabled or locked accounts.
func (r *AccountRepository) SetFlags(ctx context.Context, id int64, enabled, nonLocked, nonExpired, credentialsNonExpired bool) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Enabled = enabled
	a.AccountNonLocked = nonLocked
	a.AccountNonExpired = nonExpired
	a.CredentialsNonExpired = credentialsNonExpired
	return nil
}

func (r *AccountRepository) byUsername(username string) *domain.Account {
	for _, a := range r.s.accounts {
		if a.Username == username {
			return a
		}
	}
	return nil
}

func (r *AccountRepository) byEmail(email string) *domain.Account {
	for _, a := range r.s.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}
