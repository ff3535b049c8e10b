package service

import (
	"errors"
	"testing"

	"github.com/99minutos/identity-system/internal/core/domain"
)

func identityWith(roles ...domain.RoleName) *domain.Identity {
	return &domain.Identity{AccountID: 1, Username: "u", Roles: roles}
}

func TestAuthorizationGuard_Authorize(t *testing.T) {
	g := NewAuthorizationGuard(nil, domain.LandingPaths{})

	cases := []struct {
		name     string
		identity *domain.Identity
		required []domain.RoleName
		want     bool
	}{
		{"customer to admin", identityWith(domain.RoleCustomer), []domain.RoleName{domain.RoleAdmin}, false},
		{"admin to admin", identityWith(domain.RoleAdmin), []domain.RoleName{domain.RoleAdmin}, true},
		{"vendor to vendor or admin", identityWith(domain.RoleVendor), []domain.RoleName{domain.RoleVendor, domain.RoleAdmin}, true},
		{"any authenticated", identityWith(), nil, true},
		{"nil identity", nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Authorize(tc.identity, tc.required); got != tc.want {
				t.Fatalf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthorizationGuard_RedirectTarget(t *testing.T) {
	g := NewAuthorizationGuard(nil, domain.LandingPaths{})

	cases := []struct {
		identity *domain.Identity
		want     string
	}{
		{identityWith(domain.RoleVendor, domain.RoleAdmin), "/admin/dashboard"},
		{identityWith(domain.RoleVendor), "/vendor/dashboard"},
		{identityWith(domain.RoleCustomer, domain.RoleVendor), "/vendor/dashboard"},
		{identityWith(domain.RoleCustomer), "/"},
		{nil, "/"},
	}
	for _, tc := range cases {
		if got := g.RedirectTarget(tc.identity); got != tc.want {
			t.Errorf("RedirectTarget(%v) = %q, want %q", tc.identity, got, tc.want)
		}
	}
}

func TestAuthorizationGuard_CustomLanding(t *testing.T) {
	g := NewAuthorizationGuard(nil, domain.LandingPaths{Admin: "/ops"})

	if got := g.RedirectTarget(identityWith(domain.RoleAdmin)); got != "/ops" {
		t.Fatalf("expected configured admin landing, got %q", got)
	}
	if got := g.RedirectTarget(identityWith(domain.RoleVendor)); got != "/vendor/dashboard" {
		t.Fatalf("expected default vendor landing, got %q", got)
	}
}

func TestAuthorizationGuard_Check(t *testing.T) {
	g := NewAuthorizationGuard(nil, domain.LandingPaths{})
	customer := identityWith(domain.RoleCustomer)
	admin := identityWith(domain.RoleAdmin)

	cases := []struct {
		name     string
		identity *domain.Identity
		path     string
		want     error
	}{
		{"public login", nil, "/api/auth/login", nil},
		{"public reset", nil, "/api/auth/reset-password/confirm", nil},
		{"anonymous me", nil, "/api/auth/me", domain.ErrUnauthenticated},
		{"customer me", customer, "/api/auth/me", nil},
		{"customer admin area", customer, "/api/admin/dashboard", domain.ErrAuthorization},
		{"admin admin area", admin, "/api/admin/users/alice", nil},
		{"admin customer area", admin, "/api/customer/dashboard", nil},
		{"customer vendor area", customer, "/api/vendor/dashboard", domain.ErrAuthorization},
		{"anonymous admin area", nil, "/api/admin/dashboard", domain.ErrUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.Check(tc.identity, tc.path); !errors.Is(err, tc.want) {
				t.Fatalf("Check = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthorizationGuard_PolicyLongestPrefix(t *testing.T) {
	g := NewAuthorizationGuard([]domain.RoutePolicy{
		{Prefix: "/api/", Roles: []domain.RoleName{domain.RoleCustomer}},
		{Prefix: "/api/admin/", Roles: []domain.RoleName{domain.RoleAdmin}},
		{Prefix: "/api/admin/public", Public: true},
	}, domain.LandingPaths{})

	if p := g.Policy("/api/admin/users"); p.Prefix != "/api/admin/" {
		t.Fatalf("expected /api/admin/, got %q", p.Prefix)
	}
	if p := g.Policy("/api/admin/public/info"); !p.Public {
		t.Fatalf("expected the most specific public policy")
	}
	if p := g.Policy("/other"); p.Public || len(p.Roles) != 0 {
		t.Fatalf("expected authenticated-only fallback, got %+v", p)
	}
}
