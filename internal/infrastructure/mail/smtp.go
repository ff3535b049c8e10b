package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/pkg/metrics"
)

// SMTPConfig holds relay settings. Username empty means no AUTH. Timeout
// bounds a whole delivery, dial included.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
	BaseURL  string
	Timeout  time.Duration
}

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPMailer implements ports.ResetMailer over go-mail.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
	log  zerolog.Logger
}

// NewSMTPMailer validates the relay address and prepares the client options.
// A client is built per delivery so concurrent sends share no connection.
func NewSMTPMailer(cfg SMTPConfig, log zerolog.Logger) (*SMTPMailer, error) {
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", cfg.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	m := &SMTPMailer{cfg: cfg, log: log}
	m.send = func(ctx context.Context, msg *gomail.Msg) error {
		client, err := gomail.NewClient(host, opts...)
		if err != nil {
			return err
		}
		return client.DialAndSendWithContext(ctx, msg)
	}
	return m, nil
}

// SendPasswordReset renders the reset mail and hands it to the relay.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, account *domain.Account, token string, validFor time.Duration) error {
	if account.Email == "" {
		return errNoRecipient
	}

	msg, err := buildResetMessage(m.cfg.From, account.Email, account.Username, ResetLink(m.cfg.BaseURL, token), validFor)
	if err != nil {
		return err
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	err = m.send(ctx, msg)
	if err != nil {
		metrics.MailDeliveryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("smtp send: %w", err)
	}
	metrics.MailDeliveryDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())

	m.log.Info().Int64("account_id", account.ID).Msg("password reset mail sent")
	return nil
}
