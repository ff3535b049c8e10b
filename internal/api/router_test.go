package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/service"
	"github.com/99minutos/identity-system/internal/infrastructure/db/memory"
)

type capturedMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *capturedMailer) SendPasswordReset(_ context.Context, account *domain.Account, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[account.Email] = token
	return nil
}

func (m *capturedMailer) tokenFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type testServer struct {
	srv    *httptest.Server
	mailer *capturedMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()
	hasher := service.NewBcryptHasher(bcrypt.MinCost)
	mailer := &capturedMailer{tokens: map[string]string{}}

	roles := service.NewRoleRegistry(store.Roles(), log)
	require.NoError(t, roles.EnsureAll(context.Background()))

	registry := prometheus.NewRegistry()
	e, err := NewRouter(Dependencies{
		Accounts:   service.NewAccountProvisioner(store.Accounts(), roles, hasher, log),
		Sessions:   service.NewSessionManager(store.Accounts(), memory.NewSessionStore(), hasher, "router-secret", time.Hour, log),
		Resets:     service.NewResetTokenManager(store.Accounts(), store.ResetTokens(), store, hasher, mailer, 30*time.Minute, log),
		Guard:      service.NewAuthorizationGuard(nil, domain.LandingPaths{}),
		Registerer: registry,
		Gatherer:   registry,
		Log:        log,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, username, role string) {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"secret1","role":"`+role+`"}`)
	require.Equal(t, http.StatusCreated, code, "register %s: %v", username, body)
}

func (s *testServer) login(t *testing.T, principal, password string) (string, string) {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/auth/login", "",
		`{"username_or_email":"`+principal+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, code, "login %s: %v", principal, body)
	data := body["data"].(map[string]any)
	return data["token"].(string), data["redirect"].(string)
}

func TestRouter_RoleAreas(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "root", "ADMIN")
	s.register(t, "vera", "vendor")
	s.register(t, "cathy", "ROLE_CUSTOMER")

	adminToken, redirect := s.login(t, "root", "secret1")
	assert.Equal(t, "/admin/dashboard", redirect)
	vendorToken, redirect := s.login(t, "vera@example.com", "secret1")
	assert.Equal(t, "/vendor/dashboard", redirect)
	customerToken, redirect := s.login(t, "cathy", "secret1")
	assert.Equal(t, "/", redirect)

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/api/admin/dashboard", "", http.StatusUnauthorized},
		{"/api/admin/dashboard", adminToken, http.StatusOK},
		{"/api/admin/dashboard", vendorToken, http.StatusForbidden},
		{"/api/admin/users/cathy", adminToken, http.StatusOK},
		{"/api/admin/users/nobody", adminToken, http.StatusNotFound},
		{"/api/vendor/dashboard", vendorToken, http.StatusOK},
		{"/api/vendor/products", adminToken, http.StatusOK},
		{"/api/vendor/dashboard", customerToken, http.StatusForbidden},
		{"/api/customer/dashboard", customerToken, http.StatusOK},
		{"/api/customer/profile", adminToken, http.StatusOK},
		{"/api/customer/dashboard", vendorToken, http.StatusForbidden},
		{"/api/auth/me", customerToken, http.StatusOK},
		{"/health", "", http.StatusOK},
		{"/health/ready", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		code, body := s.do(t, http.MethodGet, tt.path, tt.token, "")
		assert.Equal(t, tt.want, code, "GET %s: %v", tt.path, body)
	}
}

func TestRouter_RegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "CUSTOMER")

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"alice","email":"other@example.com","password":"secret1","role":"CUSTOMER"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "username is already taken", body["error"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"bob","email":"bob@example.com","password":"secret1","role":"ROOT"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"bob","email":"bob@example.com","password":"123","role":"CUSTOMER"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_SingleSessionAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "CUSTOMER")

	first, _ := s.login(t, "alice", "secret1")
	second, _ := s.login(t, "alice", "secret1")

	code, _ := s.do(t, http.MethodGet, "/api/customer/dashboard", first, "")
	assert.Equal(t, http.StatusUnauthorized, code, "evicted session must be rejected")
	code, _ = s.do(t, http.MethodGet, "/api/customer/dashboard", second, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/logout", second, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/customer/dashboard", second, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username_or_email":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid username/email or password", body["error"])
}

func TestRouter_PasswordReset(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "CUSTOMER")

	code, body := s.do(t, http.MethodPost, "/api/auth/reset-password/request", "", `{"email":"ghost@example.com"}`)
	require.Equal(t, http.StatusOK, code)
	generic := body["message"]

	code, body = s.do(t, http.MethodPost, "/api/auth/reset-password/request", "", `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, generic, body["message"], "known and unknown emails must look the same")

	token := s.mailer.tokenFor("alice@example.com")
	require.NotEmpty(t, token)

	code, _ = s.do(t, http.MethodGet, "/api/auth/reset-password/validate?token="+token, "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/auth/reset-password/confirm?token="+token, "", "")
	assert.Equal(t, http.StatusFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/reset-password/confirm", "",
		`{"token":"`+token+`","new_password":"newpass1"}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/reset-password/confirm", "",
		`{"token":"`+token+`","new_password":"another1"}`)
	assert.Equal(t, http.StatusBadRequest, code, "token is single-use")

	code, _ = s.do(t, http.MethodGet, "/api/auth/reset-password/validate?token="+token, "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	s.login(t, "alice", "newpass1")
}
