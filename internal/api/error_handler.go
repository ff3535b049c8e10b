package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	var ce *domain.ConflictError
	var re *domain.InvalidRoleError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Reason
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error()
	case errors.As(err, &re):
		return http.StatusBadRequest, re.Error()
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, domain.ErrAuthentication.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden, domain.ErrAuthorization.Error()
	case errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrTokenUsed),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "user not found"
	}

	// Unexpected error: log the real cause, return a generic message.
	event := log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path())
	if oe, ok := oops.AsOops(err); ok {
		event = event.Str("code", fmt.Sprint(oe.Code())).Fields(oe.Context())
	}
	event.Msg("unhandled error")

	return http.StatusInternalServerError, "an unexpected error occurred"
}
