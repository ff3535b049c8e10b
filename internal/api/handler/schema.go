package handler

import (
	"github.com/99minutos/identity-system/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// apiResponse is the success envelope.
type apiResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Request / Response types ---

// Password rules live in the account service so both registration and reset
// report the same messages; only presence and shape are checked here.
type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password"`
	Role     string `json:"role"     validate:"required"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password"          validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password"`
}

type accountView struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Enabled  bool     `json:"enabled"`
	Roles    []string `json:"roles"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	Redirect  string      `json:"redirect"`
	User      accountView `json:"user"`
}

type dashboardView struct {
	Message string   `json:"message"`
	User    string   `json:"user"`
	Roles   []string `json:"roles,omitempty"`
}

func toAccountView(a *domain.Account) accountView {
	return accountView{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Enabled:  a.Enabled,
		Roles:    roleStrings(a.RoleNames()),
	}
}

func identityView(i *domain.Identity) accountView {
	return accountView{
		ID:       i.AccountID,
		Username: i.Username,
		Email:    i.Email,
		Enabled:  true,
		Roles:    roleStrings(i.Roles),
	}
}

func roleStrings(names []domain.RoleName) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	return out
}
