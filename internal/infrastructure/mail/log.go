package mail

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// LogMailer writes the reset link to the log instead of sending it.
type LogMailer struct {
	baseURL string
	log     zerolog.Logger
}

func NewLogMailer(baseURL string, log zerolog.Logger) *LogMailer {
	return &LogMailer{baseURL: baseURL, log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, account *domain.Account, token string, validFor time.Duration) error {
	if account.Email == "" {
		return errNoRecipient
	}
	m.log.Warn().
		Int64("account_id", account.ID).
		Str("email", account.Email).
		Str("reset_url", ResetLink(m.baseURL, token)).
		Dur("valid_for", validFor).
		Msg("password reset mail not sent: no SMTP relay configured")
	return nil
}
