package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/pkg/metrics"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

// AccountProvisioner registers new accounts.
type AccountProvisioner struct {
	accounts ports.AccountRepository
	roles    *RoleRegistry
	hasher   ports.PasswordHasher
	now      func() time.Time
	log      zerolog.Logger
}

func NewAccountProvisioner(
	accounts ports.AccountRepository,
	roles *RoleRegistry,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
) *AccountProvisioner {
	return &AccountProvisioner{
		accounts: accounts,
		roles:    roles,
		hasher:   hasher,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Register creates an account holding a single role.
//
// The existence checks are a fast path only; the unique indexes behind
// accounts.Insert are what actually guarantee uniqueness. When Insert loses a
// race the checks are re-run so the caller still learns which key collided.
func (p *AccountProvisioner) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if err := p.checkAvailable(ctx, in.Username, in.Email); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		return nil, err
	}

	roleName, err := domain.ParseRoleName(in.Role)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid_role").Inc()
		return nil, err
	}

	hash, err := p.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_HASH_FAILED").Wrap(err)
	}

	role, err := p.roles.GetOrCreate(ctx, roleName)
	if err != nil {
		return nil, err
	}

	now := p.now()
	account, err := p.accounts.Insert(ctx, &domain.Account{
		Username:              in.Username,
		Email:                 in.Email,
		PasswordHash:          hash,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		CreatedAt:             now,
		UpdatedAt:             now,
		Roles:                 []domain.Role{*role},
	})
	if err != nil {
		if dk, ok := domain.AsDuplicateKey(err); ok {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, p.resolveConflict(ctx, in.Username, in.Email, dk)
		}
		return nil, oops.Code("REGISTER_INSERT_FAILED").With("username", in.Username).Wrap(err)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	p.log.Info().
		Int64("account_id", account.ID).
		Str("username", account.Username).
		Str("role", roleName.String()).
		Msg("account registered")

	return account, nil
}

// Lookup returns the account registered under username.
func (p *AccountProvisioner) Lookup(ctx context.Context, username string) (*domain.Account, error) {
	return p.accounts.FindByUsername(ctx, strings.TrimSpace(username))
}

func (p *AccountProvisioner) checkAvailable(ctx context.Context, username, email string) error {
	taken, err := p.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return oops.Code("REGISTER_LOOKUP_FAILED").With("field", "username").Wrap(err)
	}
	if taken {
		return &domain.ConflictError{Field: "username"}
	}

	taken, err = p.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return oops.Code("REGISTER_LOOKUP_FAILED").With("field", "email").Wrap(err)
	}
	if taken {
		return &domain.ConflictError{Field: "email"}
	}
	return nil
}

func (p *AccountProvisioner) resolveConflict(ctx context.Context, username, email string, dk *domain.DuplicateKeyError) error {
	err := p.checkAvailable(ctx, username, email)
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	if err != nil {
		return err
	}

	switch dk.Field {
	case "username", "email":
		return &domain.ConflictError{Field: dk.Field}
	}
	p.log.Error().Err(dk).Str("username", username).Msg("registration conflict without a colliding key")
	return oops.Code("REGISTER_CONFLICT_UNRESOLVED").Wrap(errors.Join(domain.ErrProvisioning, dk))
}

func validateRegistration(in ports.RegisterInput) error {
	n := utf8.RuneCountInString(in.Username)
	switch {
	case n == 0:
		return domain.NewValidationError("username", "username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		return domain.NewValidationError("username", "username must be between 3 and 50 characters")
	case in.Email == "":
		return domain.NewValidationError("email", "email is required")
	case !strings.Contains(in.Email, "@"):
		return domain.NewValidationError("email", "email must be a valid email")
	}
	return validatePassword(in.Password)
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return domain.NewValidationError("password", "password cannot be empty")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domain.NewValidationError("password", "password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError("password", "password must be at most 72 bytes long")
	}
	return nil
}
