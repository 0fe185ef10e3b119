package router

import (
	"github.com/labstack/echo/v4"

	"github.com/admissions-portal/portal/internal/handler"
	"github.com/admissions-portal/portal/internal/middleware"
)

// RegisterApplicant registers the application form and the applicant
// pages. The form itself is public; submitting and listing require an
// applicant session.
func RegisterApplicant(e *echo.Echo, h *handler.ApplicantHandler) {
	e.GET("/apply", h.ApplyPage)

	applicant := middleware.RequireApplicant()
	e.POST("/submit_application", h.Submit, applicant)
	e.GET("/my_application", h.MyApplications, applicant)
}
