package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/identity-system/docs"
	"github.com/99minutos/identity-system/internal/api/handler"
	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// Dependencies are the services and settings the HTTP layer is built from.
type Dependencies struct {
	Accounts ports.AccountService
	Sessions ports.SessionService
	Resets   ports.PasswordResetService
	Guard    ports.Guard

	// Checks back the readiness probe. Empty means always ready.
	Checks []handler.DependencyCheck

	CookieSecure bool

	// Registerer receives the HTTP metrics. Nil uses the default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) (*echo.Echo, error) {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	httpMetrics, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "identity_http",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(httpMetrics)
	e.Use(middleware.Session(deps.Sessions))
	e.Use(middleware.Authorize(deps.Guard))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Accounts, deps.Sessions, deps.Guard, handler.CookieConfig{Secure: deps.CookieSecure})
	resetHandler := handler.NewResetHandler(deps.Resets, deps.Log)
	dashboardHandler := handler.NewDashboardHandler(deps.Accounts)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me)

	reset := auth.Group("/reset-password")
	reset.POST("/request", resetHandler.Request)
	reset.POST("/confirm", resetHandler.Confirm)
	reset.GET("/confirm", resetHandler.RedirectConfirm)
	reset.GET("/validate", resetHandler.Validate)

	// --- Role areas ---
	admin := e.Group("/api/admin")
	admin.GET("/dashboard", dashboardHandler.Admin)
	admin.GET("/users/:username", dashboardHandler.AdminUser)

	vendor := e.Group("/api/vendor")
	vendor.GET("/dashboard", dashboardHandler.Vendor)
	vendor.GET("/products", dashboardHandler.VendorProducts)

	customer := e.Group("/api/customer")
	customer.GET("/dashboard", dashboardHandler.Customer)
	customer.GET("/profile", dashboardHandler.CustomerProfile)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
