package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/effectivemobile/bank-cards/internal/api/handler"
	"github.com/effectivemobile/bank-cards/internal/api/middleware"
	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/infrastructure/http/handlers"
)

// Deps carries everything the HTTP layer needs. Accounts reloads the token
// subject on every authenticated request.
type Deps struct {
	Ledger      ports.LedgerService
	Users       ports.UserService
	Auth        ports.AuthService
	Audit       ports.AuditService
	Idempotency ports.IdempotencyStore
	Accounts    middleware.UserLookup
	Readiness   map[string]handlers.Check
	JWTSecret   string
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// It registers request metrics on the default Prometheus registry, so call it
// once per process.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("cards"))

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewReadinessHandler(d.Readiness).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Users, d.Auth)
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	authGate := middleware.Auth(d.JWTSecret, d.Accounts)
	idempotent := middleware.Idempotency(d.Idempotency, d.Log)

	// --- Card holder ---
	cardHandler := handler.NewCardHandler(d.Ledger)
	cards := e.Group("/api/cards", authGate, middleware.RBAC(domain.RoleUser))
	cards.GET("", cardHandler.List)
	cards.POST("/transfer", cardHandler.Transfer, idempotent)
	cards.POST("/:id/block", cardHandler.Block)
	cards.POST("/:id/topup", cardHandler.TopUp, idempotent)
	cards.GET("/:id/number", cardHandler.RevealNumber)

	// --- Administration ---
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	adminCardHandler := handler.NewAdminCardHandler(d.Ledger, d.Audit)
	adminCards := e.Group("/api/admin/cards", authGate, adminOnly)
	adminCards.POST("", adminCardHandler.Create)
	adminCards.GET("", adminCardHandler.List)
	adminCards.DELETE("/:id", adminCardHandler.Delete)
	adminCards.POST("/:id/topup", adminCardHandler.TopUp, idempotent)
	adminCards.POST("/:id/activate", adminCardHandler.Activate)
	adminCards.POST("/:id/block", adminCardHandler.Block)
	adminCards.GET("/:id/events", adminCardHandler.Events)

	adminUserHandler := handler.NewAdminUserHandler(d.Users)
	adminUsers := e.Group("/api/admin/users", authGate, adminOnly)
	adminUsers.POST("", adminUserHandler.Create)
	adminUsers.GET("", adminUserHandler.List)
	adminUsers.PATCH("/:id/roles", adminUserHandler.UpdateRoles)
	adminUsers.DELETE("/:id", adminUserHandler.Delete)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
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
