// Package memory is an in-process storage driver. It implements every
// repository port plus the transactor and session store, and backs the test
// suites and STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

type txKey struct{}

// Store holds all collections behind one mutex. A transaction keeps the mutex
// for its whole duration and restores a snapshot when fn fails.
type Store struct {
	mu       sync.Mutex
	counters map[string]int64
	accounts map[int64]*domain.Account
	roles    map[domain.RoleName]*domain.Role
	tokens   map[int64]*domain.ResetToken // keyed by account id
	now      func() time.Time
}

func New() *Store {
	return &Store{
		counters: make(map[string]int64),
		accounts: make(map[int64]*domain.Account),
		roles:    make(map[domain.RoleName]*domain.Role),
		tokens:   make(map[int64]*domain.ResetToken),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Accounts() *AccountRepository       { return &AccountRepository{s: s} }
func (s *Store) Roles() *RoleRepository             { return &RoleRepository{s: s} }
func (s *Store) ResetTokens() *ResetTokenRepository { return &ResetTokenRepository{s: s} }

// WithinTransaction implements ports.Transactor. Nested calls join the outer
// transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ResetTokenCount reports how many token rows exist.
func (s *Store) ResetTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// AccountCount reports how many account rows exist.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store mutex unless ctx already runs inside this store's
// transaction, which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID(name string) int64 {
	s.counters[name]++
	return s.counters[name]
}

type snapshot struct {
	counters map[string]int64
	accounts map[int64]*domain.Account
	roles    map[domain.RoleName]*domain.Role
	tokens   map[int64]*domain.ResetToken
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		counters: make(map[string]int64, len(s.counters)),
		accounts: make(map[int64]*domain.Account, len(s.accounts)),
		roles:    make(map[domain.RoleName]*domain.Role, len(s.roles)),
		tokens:   make(map[int64]*domain.ResetToken, len(s.tokens)),
	}
	for k, v := range s.counters {
		snap.counters[k] = v
	}
	for k, v := range s.accounts {
		snap.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.roles {
		r := *v
		snap.roles[k] = &r
	}
	for k, v := range s.tokens {
		t := *v
		snap.tokens[k] = &t
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.counters = snap.counters
	s.accounts = snap.accounts
	s.roles = snap.roles
	s.tokens = snap.tokens
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Roles = append([]domain.Role(nil), a.Roles...)
	return &out
}
