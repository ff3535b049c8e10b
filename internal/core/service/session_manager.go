package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/pkg/metrics"
)

// DefaultSessionTTL applies when no session lifetime is configured.
const DefaultSessionTTL = 24 * time.Hour

// dummyPassword is hashed once at construction. Unknown usernames are compared
// against it so a miss costs the same bcrypt work as a wrong password.
const dummyPassword = "identity-system/timing-equalizer"

// sessionClaims is the signed payload of a session token.
type sessionClaims struct {
	SessionID string            `json:"sid"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Roles     []domain.RoleName `json:"roles"`
	jwt.RegisteredClaims
}

// SessionManager authenticates credentials and keeps at most one live session
// per account. A new login evicts the previous session.
type SessionManager struct {
	accounts  ports.AccountRepository
	sessions  ports.SessionStore
	hasher    ports.PasswordHasher
	jwtSecret []byte
	ttl       time.Duration
	dummyHash string
	now       func() time.Time
	log       zerolog.Logger
}

func NewSessionManager(
	accounts ports.AccountRepository,
	sessions ports.SessionStore,
	hasher ports.PasswordHasher,
	jwtSecret string,
	ttl time.Duration,
	log zerolog.Logger,
) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy hash; unknown-user logins will be faster")
	}
	return &SessionManager{
		accounts:  accounts,
		sessions:  sessions,
		hasher:    hasher,
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Authenticate verifies the credentials and establishes a session.
// usernameOrEmail is tried as a username first and then as an email.
//
// Every credential failure, including a disabled, locked or expired account,
// returns domain.ErrAuthentication. The precise reason is only logged.
func (m *SessionManager) Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error) {
	principal := strings.TrimSpace(usernameOrEmail)

	account, err := m.findAccount(ctx, principal)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if account == nil {
		_ = m.hasher.Compare(m.dummyHash, password)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		m.log.Debug().Msg("login rejected: unknown principal")
		return nil, domain.ErrAuthentication
	}

	if err := m.hasher.Compare(account.PasswordHash, password); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		m.log.Debug().Int64("account_id", account.ID).Msg("login rejected: bad password")
		return nil, domain.ErrAuthentication
	}
	if !account.CanLogin() {
		metrics.LoginAttemptsTotal.WithLabelValues("account_disabled").Inc()
		m.log.Info().
			Int64("account_id", account.ID).
			Bool("enabled", account.Enabled).
			Bool("non_locked", account.AccountNonLocked).
			Bool("non_expired", account.AccountNonExpired).
			Bool("credentials_non_expired", account.CredentialsNonExpired).
			Msg("login rejected: account state")
		return nil, domain.ErrAuthentication
	}

	session, err := m.establish(ctx, account)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	m.log.Info().
		Int64("account_id", account.ID).
		Str("session_id", session.ID).
		Msg("login succeeded")
	return session, nil
}

// Resolve verifies a session token and returns its identity and session id.
// A token whose session is no longer the account's active one is rejected.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.Identity, string, error) {
	if token == "" {
		return nil, "", domain.ErrUnauthenticated
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, "", domain.ErrUnauthenticated
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.SessionID == "" {
		return nil, "", domain.ErrUnauthenticated
	}

	active, err := m.sessions.Active(ctx, accountID)
	if err != nil {
		return nil, "", oops.Code("SESSION_LOOKUP_FAILED").With("account_id", accountID).Wrap(err)
	}
	if active != claims.SessionID {
		return nil, "", domain.ErrUnauthenticated
	}

	return &domain.Identity{
		AccountID: accountID,
		Username:  claims.Username,
		Email:     claims.Email,
		Roles:     claims.Roles,
	}, claims.SessionID, nil
}

// Logout ends the given session. It is a no-op when the session is already
// gone or has been superseded by a newer login.
func (m *SessionManager) Logout(ctx context.Context, identity *domain.Identity, sessionID string) error {
	if identity == nil || sessionID == "" {
		return nil
	}
	if err := m.sessions.Release(ctx, identity.AccountID, sessionID); err != nil {
		return oops.Code("SESSION_RELEASE_FAILED").With("account_id", identity.AccountID).Wrap(err)
	}
	m.log.Info().Int64("account_id", identity.AccountID).Str("session_id", sessionID).Msg("logout")
	return nil
}

// CurrentIdentity returns the identity bound to ctx by the session middleware.
func (m *SessionManager) CurrentIdentity(ctx context.Context) (*domain.Identity, error) {
	return authctx.Current(ctx)
}

func (m *SessionManager) findAccount(ctx context.Context, principal string) (*domain.Account, error) {
	if principal == "" {
		return nil, nil
	}
	account, err := m.accounts.FindByUsername(ctx, principal)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, oops.Code("LOGIN_LOOKUP_FAILED").With("operation", "FindByUsername").Wrap(err)
	}

	account, err = m.accounts.FindByEmail(ctx, principal)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("LOGIN_LOOKUP_FAILED").With("operation", "FindByEmail").Wrap(err)
	}
	return account, nil
}

func (m *SessionManager) establish(ctx context.Context, account *domain.Account) (*domain.Session, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	sessionID := ulid.Make().String()
	identity := domain.NewIdentity(account)

	previous, err := m.sessions.Active(ctx, account.ID)
	if err != nil {
		return nil, oops.Code("SESSION_BIND_FAILED").With("account_id", account.ID).Wrap(err)
	}
	if err := m.sessions.Bind(ctx, account.ID, sessionID, m.ttl); err != nil {
		return nil, oops.Code("SESSION_BIND_FAILED").With("account_id", account.ID).Wrap(err)
	}
	if previous != "" && previous != sessionID {
		metrics.SessionsEvictedTotal.Inc()
		m.log.Info().
			Int64("account_id", account.ID).
			Str("evicted_session_id", previous).
			Msg("previous session evicted by new login")
	}

	claims := sessionClaims{
		SessionID: sessionID,
		Username:  identity.Username,
		Email:     identity.Email,
		Roles:     identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.jwtSecret)
	if err != nil {
		return nil, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}

	return &domain.Session{
		ID:        sessionID,
		Token:     token,
		Identity:  identity,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
