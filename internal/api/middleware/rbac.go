package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/pkg/metrics"
)

// Authorize applies the guard's route table to every request path. The
// table is the single source of access rules; route groups add none of their own.
func Authorize(guard ports.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := authctx.Identity(c.Request().Context())
			if err := guard.Check(identity, c.Request().URL.Path); err != nil {
				countDenied(err)
				return err
			}
			return next(c)
		}
	}
}

func countDenied(err error) {
	reason := "forbidden"
	if errors.Is(err, domain.ErrUnauthenticated) {
		reason = "unauthenticated"
	}
	metrics.AuthorizationDeniedTotal.WithLabelValues(reason).Inc()
}
