package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/ports"
)

// DashboardHandler serves the role-scoped API areas. Access is decided by the
// route guard before these run.
type DashboardHandler struct {
	accounts ports.AccountService
}

func NewDashboardHandler(accounts ports.AccountService) *DashboardHandler {
	return &DashboardHandler{accounts: accounts}
}

// Admin
//
// @Summary      Admin dashboard
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=dashboardView}
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/dashboard [get]
func (h *DashboardHandler) Admin(c echo.Context) error {
	return h.dashboard(c, "Admin")
}

// AdminUser looks up any account by username.
//
// @Summary      Get user by username
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  apiResponse{data=accountView}
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/admin/users/{username} [get]
func (h *DashboardHandler) AdminUser(c echo.Context) error {
	account, err := h.accounts.Lookup(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{
		Message: "User information retrieved",
		Data:    toAccountView(account),
	})
}

// Vendor
//
// @Summary      Vendor dashboard
// @Tags         vendor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=dashboardView}
// @Failure      403  {object}  errorResponse
// @Router       /api/vendor/dashboard [get]
func (h *DashboardHandler) Vendor(c echo.Context) error {
	return h.dashboard(c, "Vendor")
}

// Customer
//
// @Summary      Customer dashboard
// @Tags         customer
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=dashboardView}
// @Failure      403  {object}  errorResponse
// @Router       /api/customer/dashboard [get]
func (h *DashboardHandler) Customer(c echo.Context) error {
	return h.dashboard(c, "Customer")
}

func (h *DashboardHandler) dashboard(c echo.Context, area string) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{
		Message: area + " dashboard accessed successfully",
		Data: dashboardView{
			Message: "Welcome to " + area + " Dashboard",
			User:    identity.Username,
			Roles:   roleStrings(identity.Roles),
		},
	})
}

// VendorProducts
//
// @Summary      Vendor products
// @Tags         vendor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=dashboardView}
// @Failure      403  {object}  errorResponse
// @Router       /api/vendor/products [get]
func (h *DashboardHandler) VendorProducts(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{
		Message: "Vendor products",
		Data: dashboardView{
			Message: "Product listing for " + identity.Username,
			User:    identity.Username,
			Roles:   roleStrings(identity.Roles),
		},
	})
}

// CustomerProfile returns the caller's own account.
//
// @Summary      Customer profile
// @Tags         customer
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=accountView}
// @Failure      403  {object}  errorResponse
// @Router       /api/customer/profile [get]
func (h *DashboardHandler) CustomerProfile(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.Lookup(c.Request().Context(), identity.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{
		Message: "Customer profile",
		Data:    toAccountView(account),
	})
}
