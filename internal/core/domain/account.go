package domain

import "time"

// Account is a registered user together with its resolved role set.
type Account struct {
	ID                    int64     `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"`
	Enabled               bool      `json:"enabled"`
	AccountNonExpired     bool      `json:"account_non_expired"`
	AccountNonLocked      bool      `json:"account_non_locked"`
	CredentialsNonExpired bool      `json:"credentials_non_expired"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Roles                 []Role    `json:"roles"`
}

// CanLogin reports whether every account-state flag allows authentication.
func (a *Account) CanLogin() bool {
	return a.Enabled && a.AccountNonExpired && a.AccountNonLocked && a.CredentialsNonExpired
}

// RoleNames returns the names of the account's roles.
func (a *Account) RoleNames() []RoleName {
	names := make([]RoleName, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Identity is the authenticated principal bound to a request.
type Identity struct {
	AccountID int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Roles     []RoleName `json:"roles"`
}

// NewIdentity projects an account into the principal carried by a session.
func NewIdentity(a *Account) *Identity {
	return &Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Roles:     a.RoleNames(),
	}
}

// HasRole reports whether the identity holds role.
func (i *Identity) HasRole(role RoleName) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i *Identity) HasAnyRole(roles ...RoleName) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

// Session is an established login. Token is the signed credential handed to the client.
type Session struct {
	ID        string
	Token     string
	Identity  *Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}
