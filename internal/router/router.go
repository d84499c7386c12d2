package router // package router wires middleware, handlers and routes onto Echo

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/handler"
	"github.com/iliyamo/work-location-scheduler/internal/middleware"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

// Deps are the process-wide collaborators the HTTP surface needs. Redis may
// be nil; rate limiting and response caching are then disabled.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	DB        *sql.DB
	Redis     *redis.Client
	Signer    *utils.TokenSigner
	Logger    *slog.Logger
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	Setup(e, d)

	users := repository.NewUserRepo(d.DB)
	schedules := repository.NewScheduleRepo(d.DB)
	resolver := middleware.NewSessionResolver(d.Signer, users)

	RegisterRoutes(e, d.DB, d.Logger)
	api := e.Group("/api")
	RegisterAuth(api, handler.NewAuthHandler(d.Cfg, users, d.Signer, d.Logger), resolver, d)
	RegisterUsers(api, handler.NewUserHandler(d.Cfg, users, d.Logger), resolver, d)
	RegisterSchedules(api, handler.NewScheduleHandler(schedules, d.Logger), resolver, d.Logger)
	return e
}

// Setup installs the global middleware chain. Metrics is outermost so it
// observes the final status; the request logger sits inside RequestID so
// every line carries the id.
func Setup(e *echo.Echo, d Deps) {
	e.Use(middleware.Metrics())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Cfg.FrontendOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.CSRFHeader, middleware.APIKeyHeader},
		AllowCredentials: true,
	}))
	if d.Cfg.IsProduction() {
		e.Use(middleware.TrustedHosts(d.Cfg.Domain))
	}
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB, logger *slog.Logger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db, logger))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers /auth. Login, refresh and logout need no session;
// the machine login is guarded by the API key.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, resolver *middleware.SessionResolver, d Deps) {
	g := api.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/login/lambda", a.MachineLogin, middleware.RequireAPIKey(d.Cfg.MachineAPIKey, d.Logger))
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	session := middleware.RequireSession(resolver, d.Logger)
	g.POST("/change-password", a.ChangePassword, session, middleware.RequireCSRF())
	g.GET("/me", a.Me, session)
}

// RegisterUsers registers /users. The missing-schedule report also accepts
// the machine API key and is served from the response cache.
func RegisterUsers(api *echo.Group, u *handler.UserHandler, resolver *middleware.SessionResolver, d Deps) {
	api.GET("/users/missing-schedule", u.MissingSchedule,
		middleware.RequireAPIKeyOrSession(d.Cfg.MachineAPIKey, resolver, d.Logger),
		middleware.ResponseCache(d.Cache, d.Redis, d.Logger))

	g := api.Group("/users", middleware.RequireSession(resolver, d.Logger), middleware.RequireCSRF())
	g.POST("", u.Create)
	g.GET("", u.List)
	g.PATCH("/:id/commuting_allowance", u.UpdateCommutingAllowance)
}

// RegisterSchedules registers /schedules behind session and CSRF checks.
func RegisterSchedules(api *echo.Group, s *handler.ScheduleHandler, resolver *middleware.SessionResolver, logger *slog.Logger) {
	g := api.Group("/schedules", middleware.RequireSession(resolver, logger), middleware.RequireCSRF())
	g.POST("", s.Upsert)
	g.GET("", s.List)
}
