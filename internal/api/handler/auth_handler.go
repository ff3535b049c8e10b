package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/authctx"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// CookieConfig controls the session cookie set on login.
type CookieConfig struct {
	Secure bool
}

type AuthHandler struct {
	accounts ports.AccountService
	sessions ports.SessionService
	guard    ports.Guard
	cookie   CookieConfig
}

func NewAuthHandler(accounts ports.AccountService, sessions ports.SessionService, guard ports.Guard, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, guard: guard, cookie: cookie}
}

// Register creates a new account holding a single role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  apiResponse{data=accountView}
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, apiResponse{
		Message: "User registered successfully",
		Data:    toAccountView(account),
	})
}

// Login authenticates by username or email and starts a session. Any earlier
// session of the same account stops working.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  apiResponse{data=loginResponse}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.sessions.Authenticate(c.Request().Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, apiResponse{
		Message: "Login successful",
		Data: loginResponse{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
			Redirect:  h.guard.RedirectTarget(session.Identity),
			User:      identityView(session.Identity),
		},
	})
}

// Logout ends the caller's session. Calling it without a session succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  apiResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := authctx.Identity(ctx)
	if err := h.sessions.Logout(ctx, identity, authctx.SessionID(ctx)); err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, apiResponse{Message: "Logout successful"})
}

// Me returns the authenticated account.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=accountView}
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	account, err := h.accounts.Lookup(c.Request().Context(), identity.Username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrUnauthenticated
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apiResponse{
		Message: "User retrieved successfully",
		Data:    toAccountView(account),
	})
}
