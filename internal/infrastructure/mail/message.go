// Package mail delivers password reset links. SMTPMailer speaks to a real
// relay; LogMailer only logs and is meant for local development.
package mail

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const resetSubject = "Password Reset Request"

var errNoRecipient = errors.New("account email is empty")

var resetTemplate = template.Must(template.New("password-reset-email").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Username}},</p>
<p>We received a request to reset your password. Use the link below to choose a new one:</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>This link expires in {{.ExpirationMinutes}} minutes. If you did not request a reset, you can ignore this email.</p>
</body>
</html>
`))

// ResetLink builds the UI link carried by the mail.
func ResetLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password/confirm?token=" + url.QueryEscape(token)
}

type resetView struct {
	Username          string
	ResetURL          string
	ExpirationMinutes int
}

func renderResetBody(username, link string, validFor time.Duration) (string, error) {
	var body strings.Builder
	view := resetView{
		Username:          username,
		ResetURL:          link,
		ExpirationMinutes: int(validFor / time.Minute),
	}
	if err := resetTemplate.Execute(&body, view); err != nil {
		return "", fmt.Errorf("render reset mail: %w", err)
	}
	return body.String(), nil
}

// buildResetMessage addresses the reset mail and attaches the HTML body.
func buildResetMessage(from, to, username, link string, validFor time.Duration) (*gomail.Msg, error) {
	body, err := renderResetBody(username, link, validFor)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail recipient: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextHTML, body)
	return msg, nil
}
