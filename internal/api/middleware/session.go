package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const (
	// SessionCookieName matches the cookie set by the login handler.
	SessionCookieName = "SESSION"

	// ContextKeyIdentity holds the *domain.Identity on the echo.Context.
	ContextKeyIdentity = "identity"
)

// Session resolves the bearer token or session cookie and binds the identity
// to the request context. Requests without a valid session continue
// anonymously; the Authorize middleware decides whether that is allowed.
func Session(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c)
			if token == "" {
				return next(c)
			}

			req := c.Request()
			identity, sid, err := sessions.Resolve(req.Context(), token)
			if errors.Is(err, domain.ErrUnauthenticated) {
				return next(c)
			}
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(authctx.WithIdentity(req.Context(), identity, sid)))
			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
