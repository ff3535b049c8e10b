package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/infrastructure/db/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type sentMail struct {
	accountID int64
	email     string
	token     string
	validFor  time.Duration
}

type recordingMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, account *domain.Account, token string, validFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{accountID: account.ID, email: account.Email, token: token, validFor: validFor})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// ---------------------------------------------------------------------------
// Fixture: every service wired over one in-memory store.
// ---------------------------------------------------------------------------

type fixture struct {
	store    *memory.Store
	sessions *memory.SessionStore
	hasher   *BcryptHasher
	mailer   *recordingMailer
	roles    *RoleRegistry
	accounts *AccountProvisioner
	resets   *ResetTokenManager
	logins   *SessionManager
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()
	sessions := memory.NewSessionStore()
	hasher := NewBcryptHasher(bcrypt.MinCost)
	mailer := &recordingMailer{}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	roles := NewRoleRegistry(store.Roles(), log)
	accounts := NewAccountProvisioner(store.Accounts(), roles, hasher, log)
	resets := NewResetTokenManager(store.Accounts(), store.ResetTokens(), store, hasher, mailer, 30*time.Minute, log)
	resets.now = clock.Now
	logins := NewSessionManager(store.Accounts(), sessions, hasher, "test-secret", time.Hour, log)
	logins.now = clock.Now

	return &fixture{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		roles:    roles,
		accounts: accounts,
		resets:   resets,
		logins:   logins,
		clock:    clock,
	}
}

func (f *fixture) register(t *testing.T, username, email, password, role string) *domain.Account {
	t.Helper()
	account, err := f.accounts.Register(context.Background(), registerInput(username, email, password, role))
	if err != nil {
		t.Fatalf("Register(%s) returned error: %v", username, err)
	}
	return account
}

func (f *fixture) passwordHash(t *testing.T, id int64) string {
	t.Helper()
	account, err := f.store.Accounts().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	return account.PasswordHash
}

var errStub = errors.New("stub failure")
