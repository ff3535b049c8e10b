package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// policyFile is the YAML layout of ROUTE_POLICY_FILE:
//
//	routes:
//	  - prefix: /api/admin/
//	    roles: [ADMIN]
//	  - prefix: /api/auth/login
//	    public: true
type policyFile struct {
	Routes []domain.RoutePolicy `yaml:"routes"`
}

// LoadPolicies reads the route table from path. An empty path returns nil,
// which selects the built-in table.
func LoadPolicies(path string) ([]domain.RoutePolicy, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read route policy file: %w", err)
	}
	return ParsePolicies(raw)
}

// ParsePolicies decodes a route table and normalises its role names.
func ParsePolicies(raw []byte) ([]domain.RoutePolicy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: parse route policy file: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("config: route policy file defines no routes")
	}

	for i, route := range file.Routes {
		if !strings.HasPrefix(route.Prefix, "/") {
			return nil, fmt.Errorf("config: route %d: prefix %q must start with /", i, route.Prefix)
		}
		for j, role := range route.Roles {
			name, err := domain.ParseRoleName(string(role))
			if err != nil {
				return nil, fmt.Errorf("config: route %q: %w", route.Prefix, err)
			}
			file.Routes[i].Roles[j] = name
		}
	}
	return file.Routes, nil
}

// Landing returns the configured post-login targets.
func (r RoutesConfig) Landing() domain.LandingPaths {
	return domain.LandingPaths{
		Admin:   r.AdminLandingPath,
		Vendor:  r.VendorLandingPath,
		Default: r.DefaultLandingPath,
	}
}
