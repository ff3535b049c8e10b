package domain

import (
	"strings"
)

// RoleName is the closed set of roles an account can hold.
type RoleName string

const (
	RoleAdmin    RoleName = "ADMIN"
	RoleCustomer RoleName = "CUSTOMER"
	RoleVendor   RoleName = "VENDOR"
)

// legacyRolePrefix is accepted on input so stored "ROLE_ADMIN" style values parse.
const legacyRolePrefix = "ROLE_"

// AllRoleNames lists every role in a stable order.
func AllRoleNames() []RoleName {
	return []RoleName{RoleAdmin, RoleCustomer, RoleVendor}
}

// ParseRoleName is the only conversion point from external input to RoleName.
// Matching is case-insensitive and tolerates the "ROLE_" prefix.
func ParseRoleName(raw string) (RoleName, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, legacyRolePrefix)
	switch RoleName(s) {
	case RoleAdmin, RoleCustomer, RoleVendor:
		return RoleName(s), nil
	}
	return "", &InvalidRoleError{Role: raw}
}

// Valid reports whether r is a member of the enumeration.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleVendor:
		return true
	}
	return false
}

func (r RoleName) String() string { return string(r) }

// Role is the durable record for a RoleName. Exactly one exists per name.
type Role struct {
	ID   int64    `json:"id"`
	Name RoleName `json:"name"`
}
