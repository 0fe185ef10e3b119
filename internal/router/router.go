package router // package router defines how HTTP routes are registered for the portal

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/admissions-portal/portal/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and the Prometheus exposition.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the login page and the session actions. The
// limiter wraps the two credential endpoints only.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	e.GET("/", a.Index)
	e.GET("/login", a.LoginPage)
	e.GET("/logout", a.Logout)
	e.POST("/login_action", a.LoginAction, limiter)
	e.POST("/register_action", a.RegisterAction, limiter)
}
