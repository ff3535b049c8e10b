package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
)

type stubResolver struct {
	tokens map[string]*domain.Identity
	err    error
}

func (s *stubResolver) Authenticate(context.Context, string, string) (*domain.Session, error) {
	return nil, errors.New("not used")
}

func (s *stubResolver) Resolve(_ context.Context, token string) (*domain.Identity, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	id, ok := s.tokens[token]
	if !ok {
		return nil, "", domain.ErrUnauthenticated
	}
	return id, "sid-" + token, nil
}

func (s *stubResolver) Logout(context.Context, *domain.Identity, string) error { return nil }

func newResolver() *stubResolver {
	return &stubResolver{tokens: map[string]*domain.Identity{
		"good": {AccountID: 1, Username: "alice", Roles: []domain.RoleName{domain.RoleAdmin}},
	}}
}

func runSession(t *testing.T, resolver *stubResolver, req *http.Request) (*domain.Identity, string, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())

	var identity *domain.Identity
	var sid string
	err := Session(resolver)(func(c echo.Context) error {
		identity, _ = authctx.Identity(c.Request().Context())
		sid = authctx.SessionID(c.Request().Context())
		if identity != nil && c.Get(ContextKeyIdentity) != identity {
			t.Fatalf("identity not mirrored on echo context")
		}
		return nil
	})(c)
	return identity, sid, err
}

func TestSession_BearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")

	identity, sid, err := runSession(t, newResolver(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if identity == nil || identity.Username != "alice" || sid != "sid-good" {
		t.Fatalf("unexpected binding: %+v %q", identity, sid)
	}
}

func TestSession_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})

	identity, _, err := runSession(t, newResolver(), req)
	if err != nil || identity == nil {
		t.Fatalf("expected identity from cookie, got %+v / %v", identity, err)
	}
}

func TestSession_AnonymousCases(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Token good"},
		{"unknown token", "Bearer stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			identity, _, err := runSession(t, newResolver(), req)
			if err != nil {
				t.Fatalf("anonymous request must continue, got %v", err)
			}
			if identity != nil {
				t.Fatalf("expected no identity, got %+v", identity)
			}
		})
	}
}

func TestSession_StoreFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")

	boom := errors.New("redis down")
	_, _, err := runSession(t, &stubResolver{err: boom}, req)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}
