package service

import (
	"sort"
	"strings"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// DefaultLandingPaths are the post-login targets used when none are configured.
var DefaultLandingPaths = domain.LandingPaths{
	Admin:   "/admin/dashboard",
	Vendor:  "/vendor/dashboard",
	Default: "/",
}

// DefaultPolicies is the built-in route table.
func DefaultPolicies() []domain.RoutePolicy {
	return []domain.RoutePolicy{
		{Prefix: "/api/auth/register", Public: true},
		{Prefix: "/api/auth/login", Public: true},
		{Prefix: "/api/auth/logout", Public: true},
		{Prefix: "/api/auth/reset-password/", Public: true},
		{Prefix: "/api/admin/", Roles: []domain.RoleName{domain.RoleAdmin}},
		{Prefix: "/api/vendor/", Roles: []domain.RoleName{domain.RoleVendor, domain.RoleAdmin}},
		{Prefix: "/api/customer/", Roles: []domain.RoleName{domain.RoleCustomer, domain.RoleAdmin}},
		{Prefix: "/health", Public: true},
		{Prefix: "/metrics", Public: true},
		{Prefix: "/swagger/", Public: true},
	}
}

// AuthorizationGuard decides whether an identity may reach a route and where
// it lands after login. It is read-only after construction.
type AuthorizationGuard struct {
	policies []domain.RoutePolicy // sorted by descending prefix length
	landing  domain.LandingPaths
}

// NewAuthorizationGuard builds a guard over policies. A nil table selects
// DefaultPolicies; empty landing paths fall back to DefaultLandingPaths.
func NewAuthorizationGuard(policies []domain.RoutePolicy, landing domain.LandingPaths) *AuthorizationGuard {
	if policies == nil {
		policies = DefaultPolicies()
	}
	sorted := make([]domain.RoutePolicy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	if landing.Admin == "" {
		landing.Admin = DefaultLandingPaths.Admin
	}
	if landing.Vendor == "" {
		landing.Vendor = DefaultLandingPaths.Vendor
	}
	if landing.Default == "" {
		landing.Default = DefaultLandingPaths.Default
	}
	return &AuthorizationGuard{policies: sorted, landing: landing}
}

// Authorize reports whether identity holds at least one of required. An empty
// required set admits any identity; a nil identity is never admitted.
func (g *AuthorizationGuard) Authorize(identity *domain.Identity, required []domain.RoleName) bool {
	if identity == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	return identity.HasAnyRole(required...)
}

// RedirectTarget picks the landing path by fixed priority: ADMIN, then VENDOR,
// then everyone else.
func (g *AuthorizationGuard) RedirectTarget(identity *domain.Identity) string {
	switch {
	case identity.HasRole(domain.RoleAdmin):
		return g.landing.Admin
	case identity.HasRole(domain.RoleVendor):
		return g.landing.Vendor
	default:
		return g.landing.Default
	}
}

// Policy returns the longest-prefix policy for path. Unmatched paths require
// authentication but no particular role.
func (g *AuthorizationGuard) Policy(path string) domain.RoutePolicy {
	for _, p := range g.policies {
		if strings.HasPrefix(path, p.Prefix) {
			return p
		}
	}
	return domain.RoutePolicy{Prefix: path}
}

// Check applies the route policy for path to identity.
func (g *AuthorizationGuard) Check(identity *domain.Identity, path string) error {
	policy := g.Policy(path)
	if policy.Public {
		return nil
	}
	if identity == nil {
		return domain.ErrUnauthenticated
	}
	if !g.Authorize(identity, policy.Roles) {
		return domain.ErrAuthorization
	}
	return nil
}
