package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/handler"
	"github.com/iliyamo/studyroom-reservation/internal/metrics"
	"github.com/iliyamo/studyroom-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// Deps is everything New needs to build the HTTP surface.  Redis may be
// nil, in which case caching and rate limiting are skipped.
type Deps struct {
	Cfg          config.Config
	Auth         *handler.AuthHandler
	Rooms        *handler.RoomHandler
	Reservations *handler.ReservationHandler
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
}

// New returns a configured Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestID(5 * time.Second))
	if d.Cfg.Env != "test" {
		e.Use(echomw.Logger())
	}

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, d.Cfg.JWTSecret)
	RegisterRooms(e, d.Rooms, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterReservations(e, d.Reservations, d.Cfg.JWTSecret, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// the liveness probe and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication‑related routes.
// Unauthenticated operations live under /v1/auth, while /v1/me requires
// a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer.
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterRooms mounts the room catalogue behind the response cache.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/rooms", h.List, cache)
}

// RegisterReservations mounts the booking endpoints.  Reads and bookings
// are open to anonymous callers; deleting needs a token and the cleanup
// purge needs the ADMIN role.  Every write goes through the rate limiter.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/reservations")
	g.GET("", h.List)
	g.GET("/week", h.Week)
	g.POST("", h.Create, middleware.OptionalJWT(jwtSecret), limit)
	g.DELETE("/:id", h.Delete, middleware.JWTAuth(jwtSecret), limit)
	g.POST("/cleanup", h.Cleanup, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin), limit)
}
