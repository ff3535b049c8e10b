package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/pkg/metrics"
)

const (
	// DefaultResetWindow applies when no token-expiration is configured.
	DefaultResetWindow = 30 * time.Minute

	resetTokenBytes       = 32 // 256 bits
	maxTokenAttempts      = 10
	resetTokenEncodedSize = 43 // base64url, no padding, of 32 bytes
)

// ResetTokenManager owns the password reset token lifecycle:
// issue, validate and consume.
type ResetTokenManager struct {
	accounts ports.AccountRepository
	tokens   ports.ResetTokenRepository
	tx       ports.Transactor
	hasher   ports.PasswordHasher
	mailer   ports.ResetMailer
	window   time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewResetTokenManager(
	accounts ports.AccountRepository,
	tokens ports.ResetTokenRepository,
	tx ports.Transactor,
	hasher ports.PasswordHasher,
	mailer ports.ResetMailer,
	window time.Duration,
	log zerolog.Logger,
) *ResetTokenManager {
	if window <= 0 {
		window = DefaultResetWindow
	}
	return &ResetTokenManager{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		mailer:   mailer,
		window:   window,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Issue creates or replaces the reset token for the account registered under
// email and mails it. An unknown email returns nil without touching storage,
// so callers cannot tell the two cases apart.
//
// The token write and the mail hand-off share one transaction: when delivery
// fails the new token is rolled back and the error wraps domain.ErrDelivery.
func (m *ResetTokenManager) Issue(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		metrics.ResetRequestsTotal.WithLabelValues("unknown_email").Inc()
		return nil
	}

	account, err := m.accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		metrics.ResetRequestsTotal.WithLabelValues("unknown_email").Inc()
		m.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return oops.Code("RESET_ISSUE_FAILED").With("operation", "FindByEmail").Wrap(err)
	}

	token, err := m.uniqueToken(ctx)
	if err != nil {
		return err
	}
	expiry := m.now().Add(m.window)

	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := m.tokens.ReplaceForAccount(ctx, account.ID, token, expiry); err != nil {
			return oops.Code("RESET_ISSUE_FAILED").
				With("operation", "ReplaceForAccount").
				With("account_id", account.ID).
				Wrap(err)
		}
		if err := m.mailer.SendPasswordReset(ctx, account, token, m.window); err != nil {
			return oops.Code("RESET_DELIVERY_FAILED").
				With("account_id", account.ID).
				Wrap(fmt.Errorf("%w: %w", domain.ErrDelivery, err))
		}
		return nil
	})
	if err != nil {
		metrics.ResetRequestsTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.ResetRequestsTotal.WithLabelValues("issued").Inc()
	m.log.Info().
		Int64("account_id", account.ID).
		Time("expires_at", expiry).
		Msg("password reset token issued")
	return nil
}

// Validate reports whether token exists, is unused and has not expired.
func (m *ResetTokenManager) Validate(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	tok, err := m.tokens.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("RESET_VALIDATE_FAILED").With("operation", "FindByToken").Wrap(err)
	}
	return tok.UsableAt(m.now()), nil
}

// Consume sets a new password for the token's owner and retires the token.
// The password update and the used flag commit together.
func (m *ResetTokenManager) Consume(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	tok, err := m.lookup(ctx, token)
	if err != nil {
		m.countConfirm(err)
		return err
	}
	if err := m.usable(tok); err != nil {
		m.countConfirm(err)
		return err
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "Hash").Wrap(err)
	}

	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := m.lookup(ctx, token)
		if err != nil {
			return err
		}
		if err := m.usable(current); err != nil {
			return err
		}

		// Reload so the write targets the stored account, not a copy taken
		// before the transaction began.
		account, err := m.accounts.FindByID(ctx, current.AccountID)
		if err != nil {
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "FindByID").
				With("account_id", current.AccountID).
				Wrap(err)
		}
		if err := m.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "UpdatePassword").
				With("account_id", account.ID).
				Wrap(err)
		}
		if err := m.tokens.MarkUsed(ctx, token); err != nil {
			if errors.Is(err, domain.ErrTokenUsed) {
				return domain.ErrTokenUsed
			}
			return oops.Code("RESET_CONSUME_FAILED").With("operation", "MarkUsed").Wrap(err)
		}
		return nil
	})
	m.countConfirm(err)
	if err != nil {
		return err
	}

	m.log.Info().Int64("account_id", tok.AccountID).Msg("password reset completed")
	return nil
}

func (m *ResetTokenManager) lookup(ctx context.Context, token string) (*domain.ResetToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrTokenNotFound
	}
	tok, err := m.tokens.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, oops.Code("RESET_CONSUME_FAILED").With("operation", "FindByToken").Wrap(err)
	}
	return tok, nil
}

func (m *ResetTokenManager) usable(tok *domain.ResetToken) error {
	switch tok.StateAt(m.now()) {
	case domain.TokenUsed:
		return domain.ErrTokenUsed
	case domain.TokenExpired:
		return domain.ErrTokenExpired
	}
	return nil
}

// uniqueToken draws tokens until one is not already stored. A collision on
// 256 random bits is not expected; the bound keeps a broken RNG from looping.
func (m *ResetTokenManager) uniqueToken(ctx context.Context) (string, error) {
	for range maxTokenAttempts {
		token, err := generateResetToken()
		if err != nil {
			return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
		}
		_, err = m.tokens.FindByToken(ctx, token)
		if errors.Is(err, domain.ErrTokenNotFound) {
			return token, nil
		}
		if err != nil {
			return "", oops.Code("RESET_ISSUE_FAILED").With("operation", "FindByToken").Wrap(err)
		}
	}
	return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Errorf("failed to generate unique token after %d attempts", maxTokenAttempts)
}

func (m *ResetTokenManager) countConfirm(err error) {
	result := "completed"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTokenNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrTokenUsed):
		result = "used"
	case errors.Is(err, domain.ErrTokenExpired):
		result = "expired"
	default:
		result = "failed"
	}
	metrics.ResetConfirmationsTotal.WithLabelValues(result).Inc()
}

// generateResetToken returns 256 random bits as unpadded base64url.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
