package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
)

// currentIdentity returns the identity the session middleware bound to the
// request, or domain.ErrUnauthenticated. Handlers behind the guard can rely on
// it being present; the check is a fast-fail for routes mounted without it.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	return authctx.Current(c.Request().Context())
}
