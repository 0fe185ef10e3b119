package router

import (
	"github.com/labstack/echo/v4"

	"github.com/admissions-portal/portal/internal/handler"
	"github.com/admissions-portal/portal/internal/middleware"
)

// RegisterAdmin registers the administrator pages, which redirect to the
// login page without an admin session, and the JSON decision endpoint,
// which answers 401 instead.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler) {
	admin := middleware.RequireAdmin()
	e.GET("/admin_dashboard", h.Dashboard, admin)
	e.GET("/students", h.Students, admin)
	e.GET("/programs", h.Programs, admin)

	e.POST("/update_application", h.UpdateApplication, middleware.RequireAdminJSON())
}
