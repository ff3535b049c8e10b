package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/ports"
)

const (
	resetRequestedMessage = "If an account exists with this email, a password reset link has been sent."
	resetFailedMessage    = "An error occurred while processing your request"
	resetUIPath           = "/reset-password/confirm"
)

type ResetHandler struct {
	resets ports.PasswordResetService
	log    zerolog.Logger
}

func NewResetHandler(resets ports.PasswordResetService, log zerolog.Logger) *ResetHandler {
	return &ResetHandler{resets: resets, log: log}
}

// Request mails a reset link. The response never reveals whether the email
// is registered.
//
// @Summary      Request a password reset
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        body  body      resetRequest  true  "Account email"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/reset-password/request [post]
func (h *ResetHandler) Request(c echo.Context) error {
	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resets.Issue(c.Request().Context(), req.Email); err != nil {
		h.log.Error().Err(err).Msg("password reset request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: resetFailedMessage})
	}
	return c.JSON(http.StatusOK, apiResponse{Message: resetRequestedMessage})
}

// Confirm sets a new password using a reset token.
//
// @Summary      Confirm a password reset
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        body  body      resetConfirmRequest  true  "Token and new password"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/auth/reset-password/confirm [post]
func (h *ResetHandler) Confirm(c echo.Context) error {
	var req resetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resets.Consume(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "Password has been reset successfully"})
}

// RedirectConfirm forwards a mailed API link to the UI form.
//
// @Summary      Redirect to the reset form
// @Tags         password-reset
// @Param        token  query  string  true  "Reset token"
// @Success      302
// @Router       /api/auth/reset-password/confirm [get]
func (h *ResetHandler) RedirectConfirm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	return c.Redirect(http.StatusFound, resetUIPath+"?token="+url.QueryEscape(token))
}

// Validate reports whether a reset token can still be used.
//
// @Summary      Validate a reset token
// @Tags         password-reset
// @Produce      json
// @Param        token  query     string  true  "Reset token"
// @Success      200    {object}  apiResponse
// @Failure      400    {object}  errorResponse
// @Router       /api/auth/reset-password/validate [get]
func (h *ResetHandler) Validate(c echo.Context) error {
	ok, err := h.resets.Validate(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Token is invalid or expired"})
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "Token is valid"})
}
