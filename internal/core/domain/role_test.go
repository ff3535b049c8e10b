package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseRoleName(t *testing.T) {
	cases := map[string]RoleName{
		"ADMIN":         RoleAdmin,
		"admin":         RoleAdmin,
		" vendor ":      RoleVendor,
		"ROLE_CUSTOMER": RoleCustomer,
		"role_vendor":   RoleVendor,
	}
	for in, want := range cases {
		got, err := ParseRoleName(in)
		if err != nil {
			t.Fatalf("ParseRoleName(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRoleName(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseRoleName_Unknown(t *testing.T) {
	for _, in := range []string{"", "root", "ROLE_", "ADMINS"} {
		_, err := ParseRoleName(in)
		if !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("ParseRoleName(%q): expected ErrInvalidRole, got %v", in, err)
		}
		var ire *InvalidRoleError
		if !errors.As(err, &ire) || ire.Role != in {
			t.Fatalf("expected InvalidRoleError carrying %q, got %v", in, err)
		}
	}
}

func TestResetToken_StateAt(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &ResetToken{ExpiryTime: expiry}

	if s := tok.StateAt(expiry.Add(-time.Second)); s != TokenIssued {
		t.Fatalf("before expiry: got %s", s)
	}
	if s := tok.StateAt(expiry); s != TokenExpired {
		t.Fatalf("at expiry: got %s", s)
	}

	tok.Used = true
	if s := tok.StateAt(expiry.Add(-time.Hour)); s != TokenUsed {
		t.Fatalf("used token: got %s", s)
	}
	if tok.UsableAt(expiry.Add(-time.Hour)) {
		t.Fatalf("used token must not be usable")
	}
}

func TestConflictError_Messages(t *testing.T) {
	if got := (&ConflictError{Field: "username"}).Error(); got != "username is already taken" {
		t.Fatalf("unexpected message: %s", got)
	}
	if got := (&ConflictError{Field: "email"}).Error(); got != "email is already in use" {
		t.Fatalf("unexpected message: %s", got)
	}
	if !errors.Is(&ConflictError{Field: "email"}, ErrConflict) {
		t.Fatalf("ConflictError must unwrap to ErrConflict")
	}
}

func TestDuplicateKeyError_Unwrap(t *testing.T) {
	cause := errors.New("E11000")
	err := error(&DuplicateKeyError{Field: "email", Err: cause})
	if !errors.Is(err, ErrDuplicateKey) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause in chain")
	}
	dk, ok := AsDuplicateKey(err)
	if !ok || dk.Field != "email" {
		t.Fatalf("AsDuplicateKey failed: %v", err)
	}
}

func TestIdentity_HasAnyRole(t *testing.T) {
	id := &Identity{Roles: []RoleName{RoleVendor}}
	if !id.HasAnyRole(RoleAdmin, RoleVendor) {
		t.Fatalf("expected vendor match")
	}
	if id.HasAnyRole(RoleAdmin) {
		t.Fatalf("unexpected admin match")
	}
	var none *Identity
	if none.HasRole(RoleAdmin) {
		t.Fatalf("nil identity holds no roles")
	}
}
