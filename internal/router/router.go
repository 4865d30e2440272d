// Package router assembles the echo instance: global middleware, the error
// handler and every route under /api.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/taskhub/internal/config"
	"github.com/iliyamo/taskhub/internal/handler"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/metrics"
	"github.com/iliyamo/taskhub/internal/middleware"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/utils"
)

// Deps is everything the routes need. Redis may be nil, which disables rate
// limiting.
type Deps struct {
	Tokens    *utils.TokenService
	Metrics   *metrics.Metrics
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	DB        handler.Pinger

	Auth     *handler.AuthHandler
	Tenants  *handler.TenantHandler
	Users    *handler.UserHandler
	Projects *handler.ProjectHandler
	Tasks    *handler.TaskHandler
}

// New builds the HTTP server. Middleware order matters: the logger and
// metrics wrap Recover so a panic still produces a logged, counted 500.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(d.Metrics.Middleware())
	e.Use(logger.Middleware())
	e.Use(echomw.Recover())

	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	api := e.Group("/api")
	api.GET("/health", handler.Health(d.DB))

	registerAuth(api, d)
	registerTenants(api, d)
	registerProjects(api, d)
	return e
}

// registerAuth mounts /api/auth. The unauthenticated endpoints are rate
// limited per client ip.
func registerAuth(api *echo.Group, d Deps) {
	g := api.Group("/auth")
	limited := middleware.RateLimit(d.RateLimit, d.Redis)
	g.POST("/register-tenant", d.Auth.Register, limited)
	g.POST("/login", d.Auth.Login, limited)

	jwt := middleware.JWTAuth(d.Tokens, d.Metrics)
	g.GET("/me", d.Auth.Me, jwt)
	g.POST("/logout", d.Auth.Logout, jwt)
}

// registerTenants mounts the tenant and user routes. JWTAuth is attached per
// route rather than per group so unknown paths under /api stay a plain 404.
func registerTenants(api *echo.Group, d Deps) {
	jwt := middleware.JWTAuth(d.Tokens, d.Metrics)

	api.GET("/tenants", d.Tenants.List, jwt, middleware.RequireRole(model.RoleSuperAdmin))
	api.GET("/tenants/:tenantId", d.Tenants.Get, jwt)
	api.PUT("/tenants/:tenantId", d.Tenants.Update, jwt)

	api.POST("/tenants/:tenantId/users", d.Users.Add, jwt)
	api.GET("/tenants/:tenantId/users", d.Users.List, jwt)
	api.PUT("/users/:userId", d.Users.Update, jwt)
	api.DELETE("/users/:userId", d.Users.Delete, jwt)
}

func registerProjects(api *echo.Group, d Deps) {
	jwt := middleware.JWTAuth(d.Tokens, d.Metrics)

	api.POST("/projects", d.Projects.Create, jwt)
	api.GET("/projects", d.Projects.List, jwt)
	api.PUT("/projects/:projectId", d.Projects.Update, jwt)
	api.DELETE("/projects/:projectId", d.Projects.Delete, jwt)

	api.POST("/projects/:projectId/tasks", d.Tasks.Create, jwt)
	api.GET("/projects/:projectId/tasks", d.Tasks.List, jwt)
	api.PATCH("/tasks/:taskId/status", d.Tasks.UpdateStatus, jwt)
	api.PUT("/tasks/:taskId", d.Tasks.Update, jwt)
	api.DELETE("/tasks/:taskId", d.Tasks.Delete, jwt)
}
