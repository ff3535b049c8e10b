package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/99minutos/identity-system/internal/core/domain"
)

func TestResetLink(t *testing.T) {
	got := ResetLink("http://localhost:8080/", "a+b/c")
	want := "http://localhost:8080/reset-password/confirm?token=a%2Bb%2Fc"
	if got != want {
		t.Fatalf("ResetLink = %q, want %q", got, want)
	}
}

func newTestSMTPMailer(t *testing.T, cfg SMTPConfig) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSMTPMailer returned error: %v", err)
	}
	return m
}

func TestNewSMTPMailer_RejectsBadAddress(t *testing.T) {
	for _, addr := range []string{"", "smtp.example.com", "smtp.example.com:smtp"} {
		if _, err := NewSMTPMailer(SMTPConfig{Addr: addr}, zerolog.Nop()); err == nil {
			t.Errorf("expected error for relay address %q", addr)
		}
	}
}

func TestSMTPMailer_SendPasswordReset(t *testing.T) {
	var got *gomail.Msg
	m := newTestSMTPMailer(t, SMTPConfig{
		Addr:    "smtp.example.com:25",
		From:    "no-reply@example.com",
		BaseURL: "https://id.example.com",
	})
	m.send = func(_ context.Context, msg *gomail.Msg) error {
		got = msg
		return nil
	}

	account := &domain.Account{ID: 1, Username: "alice", Email: "alice@example.com"}
	if err := m.SendPasswordReset(context.Background(), account, "tok123", 30*time.Minute); err != nil {
		t.Fatalf("SendPasswordReset returned error: %v", err)
	}

	if got == nil {
		t.Fatalf("expected a message to be handed to the relay")
	}
	rcpts, err := got.GetRecipients()
	if err != nil || len(rcpts) != 1 || rcpts[0] != "alice@example.com" {
		t.Errorf("unexpected recipients %v (err %v)", rcpts, err)
	}
	if subj := got.GetGenHeader(gomail.HeaderSubject); len(subj) != 1 || subj[0] != resetSubject {
		t.Errorf("unexpected subject %v", subj)
	}
}

func TestRenderResetBody(t *testing.T) {
	body, err := renderResetBody("alice", ResetLink("https://id.example.com", "tok123"), 30*time.Minute)
	if err != nil {
		t.Fatalf("renderResetBody returned error: %v", err)
	}
	for _, want := range []string{
		"Hello alice",
		"https://id.example.com/reset-password/confirm?token=tok123",
		"expires in 30 minutes",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderResetBody_EscapesUsername(t *testing.T) {
	body, err := renderResetBody("<b>eve</b>", "https://id.example.com", time.Minute)
	if err != nil {
		t.Fatalf("renderResetBody returned error: %v", err)
	}
	if strings.Contains(body, "<b>eve</b>") {
		t.Fatalf("expected username to be HTML escaped, got %s", body)
	}
}

func TestSMTPMailer_BoundsDeliveryWithTimeout(t *testing.T) {
	m := newTestSMTPMailer(t, SMTPConfig{
		Addr:    "smtp.example.com:25",
		From:    "no-reply@example.com",
		Timeout: 2 * time.Second,
	})
	var deadline time.Time
	var hasDeadline bool
	m.send = func(ctx context.Context, _ *gomail.Msg) error {
		deadline, hasDeadline = ctx.Deadline()
		return nil
	}

	before := time.Now()
	if err := m.SendPasswordReset(context.Background(), &domain.Account{Email: "a@example.com"}, "tok", time.Minute); err != nil {
		t.Fatalf("SendPasswordReset returned error: %v", err)
	}
	if !hasDeadline {
		t.Fatalf("expected the relay call to carry a deadline")
	}
	if deadline.Sub(before) > 2*time.Second+time.Second {
		t.Fatalf("deadline %s is further out than the configured timeout", deadline.Sub(before))
	}
}

func TestSMTPMailer_RejectsBadSender(t *testing.T) {
	m := newTestSMTPMailer(t, SMTPConfig{Addr: "localhost:25", From: "not an address"})
	m.send = func(context.Context, *gomail.Msg) error {
		t.Fatalf("relay must not be called")
		return nil
	}

	if err := m.SendPasswordReset(context.Background(), &domain.Account{Email: "a@example.com"}, "tok", time.Minute); err == nil {
		t.Fatalf("expected an invalid sender to be rejected")
	}
}

func TestSMTPMailer_PropagatesRelayError(t *testing.T) {
	relayErr := errors.New("connection refused")
	m := newTestSMTPMailer(t, SMTPConfig{Addr: "localhost:25", From: "no-reply@example.com"})
	m.send = func(context.Context, *gomail.Msg) error { return relayErr }

	err := m.SendPasswordReset(context.Background(), &domain.Account{Email: "a@example.com"}, "tok", time.Minute)
	if !errors.Is(err, relayErr) {
		t.Fatalf("expected relay error, got %v", err)
	}
}

func TestMailers_RejectEmptyRecipient(t *testing.T) {
	smtpMailer := newTestSMTPMailer(t, SMTPConfig{Addr: "localhost:25", From: "no-reply@example.com"})
	logMailer := NewLogMailer("http://localhost", zerolog.Nop())

	for name, err := range map[string]error{
		"smtp": smtpMailer.SendPasswordReset(context.Background(), &domain.Account{}, "tok", time.Minute),
		"log":  logMailer.SendPasswordReset(context.Background(), &domain.Account{}, "tok", time.Minute),
	} {
		if !errors.Is(err, errNoRecipient) {
			t.Errorf("%s: expected errNoRecipient, got %v", name, err)
		}
	}
}

func TestLogMailer_LogsLink(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer("http://localhost:8080", zerolog.New(&buf))

	err := m.SendPasswordReset(context.Background(), &domain.Account{ID: 4, Email: "a@example.com"}, "tok", time.Minute)
	if err != nil {
		t.Fatalf("SendPasswordReset returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "/reset-password/confirm?token=tok") {
		t.Fatalf("expected reset link in log, got %s", buf.String())
	}
}
