package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/api/handler"
	"github.com/onepwr/procurement-tracker/internal/api/middleware"
	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// Deps carries everything the router wires into handlers. Services are
// constructed by the caller because the durable backend is configurable.
type Deps struct {
	Auth      ports.AuthService
	Sessions  middleware.SessionValidator
	Requests  ports.RequestService
	Allocator ports.Allocator
	Health    map[string]handler.Pinger
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("procurement"))

	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	requestHandler := handler.NewRequestHandler(deps.Requests, deps.Allocator)
	healthHandler := handler.NewHealthHandler(deps.Health)
	sessionMW := middleware.Session(deps.JWTSecret, deps.Sessions)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, sessionMW)
	e.GET("/auth/me", authHandler.Me, sessionMW)

	// --- Purchase request routes ---
	v1 := e.Group("/v1", sessionMW)
	v1.GET("/requests/next-number", requestHandler.NextNumber)
	v1.POST("/requests", requestHandler.Submit)
	v1.GET("/requests", requestHandler.List)
	v1.GET("/requests/:pr_number", requestHandler.Get)
	v1.POST("/requests/:pr_number/status", requestHandler.Advance,
		middleware.RBAC(domain.RoleApprover, domain.RoleFinance))
	v1.POST("/admin/reconcile/:year_month", requestHandler.Reconcile,
		middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Live)        // liveness  - is the process alive?
	e.GET("/health/ready", healthHandler.Ready) // readiness - are dependencies up?

	return e
}
