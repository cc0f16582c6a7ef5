package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/account-service/docs"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/policy"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
)

// RouterConfig carries the dependencies of the HTTP surface.
type RouterConfig struct {
	Users  ports.UserService
	Tokens middleware.TokenValidator
	// Policy defaults to policy.UserRoutes().
	Policy policy.Table
	// Readiness lists the dependencies pinged by /health/ready.
	Readiness map[string]handlers.Pinger
	// TokenErrorStatus is the status for rejected bearer tokens.
	TokenErrorStatus int
	// MetricsRegisterer receives the HTTP request metrics. Nil means the
	// default Prometheus registry.
	MetricsRegisterer prometheus.Registerer
	Log               zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	if cfg.Policy == nil {
		cfg.Policy = policy.UserRoutes()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log, cfg.TokenErrorStatus)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: cfg.MetricsRegisterer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(cfg.Readiness).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Users API: authenticate, then enforce the route policy ---
	users := handler.NewUserHandler(cfg.Users)
	g := e.Group("/users",
		middleware.Auth(cfg.Tokens),
		middleware.Authorize(cfg.Policy, cfg.Log),
	)
	g.POST("/signin", users.Signin)
	g.POST("/signup", users.Signup)
	g.GET("/me", users.WhoAmI)
	g.GET("/refresh", users.Refresh)
	g.GET("/:username", users.Search)
	g.DELETE("/:username", users.Delete)

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	return e
}
