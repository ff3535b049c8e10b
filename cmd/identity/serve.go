package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/identity-system/internal/api"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/core/service"
	"github.com/99minutos/identity-system/internal/infrastructure/mail"
	"github.com/99minutos/identity-system/internal/pkg/config"
	"github.com/99minutos/identity-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			log := initLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log)
		},
	}
}

func initLogger(cfg *config.Config) zerolog.Logger {
	return logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
		Env:    cfg.Env,
	})
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	policies, err := config.LoadPolicies(cfg.Routes.PolicyFile)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing storage")
		}
	}()

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	roles := service.NewRoleRegistry(st.roles, log)
	if err := roles.EnsureAll(ctx); err != nil {
		// Roles are created lazily on registration as well, so startup continues.
		log.Warn().Err(err).Msg("some roles could not be initialized")
	}

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	e, err := api.NewRouter(api.Dependencies{
		Accounts:     service.NewAccountProvisioner(st.accounts, roles, hasher, log),
		Sessions:     service.NewSessionManager(st.accounts, st.sessions, hasher, cfg.JWTSecret, cfg.Auth.SessionTTL, log),
		Resets:       service.NewResetTokenManager(st.accounts, st.tokens, st.tx, hasher, mailer, cfg.Auth.ResetWindow(), log),
		Guard:        service.NewAuthorizationGuard(policies, cfg.Routes.Landing()),
		Checks:       st.checks,
		CookieSecure: cfg.Auth.CookieSecure,
		Log:          log,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("identity service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newMailer picks SMTP when a relay is configured and logs links otherwise.
func newMailer(cfg *config.Config, log zerolog.Logger) (ports.ResetMailer, error) {
	if cfg.Mail.SMTPAddr == "" {
		log.Warn().Msg("SMTP_ADDR not set; reset links will be logged instead of mailed")
		return mail.NewLogMailer(cfg.Mail.BaseURL, log), nil
	}
	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Addr:     cfg.Mail.SMTPAddr,
		From:     cfg.Mail.From,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		BaseURL:  cfg.Mail.BaseURL,
		Timeout:  cfg.Mail.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}
