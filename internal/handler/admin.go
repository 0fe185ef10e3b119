package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/admissions-portal/portal/internal/middleware"
	"github.com/admissions-portal/portal/internal/service"
)

// AdminHandler serves the administrator pages and the decision endpoint.
type AdminHandler struct {
	MasterList     *service.MasterList
	Catalog        *service.Catalog
	Admissions     *service.Admissions
	DashboardLimit int
	EmbedURL       string

	Now func() time.Time
}

func NewAdminHandler(ml *service.MasterList, cat *service.Catalog, adm *service.Admissions, limit int, embedURL string) *AdminHandler {
	if limit <= 0 {
		limit = 50
	}
	return &AdminHandler{MasterList: ml, Catalog: cat, Admissions: adm, DashboardLimit: limit, EmbedURL: embedURL, Now: time.Now}
}

type dashboardPage struct {
	Applicants []service.MasterRecord
	Total      int
	EmbedURL   string
}

type studentsPage struct {
	Year       int
	Applicants []service.MasterRecord
}

type programsPage struct {
	Programs []service.ProgramView
}

// Dashboard shows the newest master list rows and the optional embedded
// report.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.MasterList.Build(ctx)
	if err != nil {
		return renderError(c, err, "/admin_dashboard")
	}
	page := dashboardPage{Applicants: list, Total: len(list), EmbedURL: h.EmbedURL}
	if len(list) > h.DashboardLimit {
		page.Applicants = list[:h.DashboardLimit]
	}
	return c.Render(http.StatusOK, "dashboard.html", page)
}

// Students lists the applications submitted in one year, the current
// year unless ?year= names another.
func (h *AdminHandler) Students(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	year := h.Now().Year()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 9999 {
			return c.String(http.StatusBadRequest, "invalid year")
		}
		year = y
	}
	list, err := h.MasterList.Build(ctx)
	if err != nil {
		return renderError(c, err, "/students")
	}
	return c.Render(http.StatusOK, "students.html", studentsPage{Year: year, Applicants: service.YearFiltered(list, year)})
}

// Programs renders the catalog. The active student figures are mock
// values drawn on every request.
func (h *AdminHandler) Programs(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	programs, err := h.Catalog.ListPrograms(ctx)
	if err != nil {
		return renderError(c, err, "/programs")
	}
	return c.Render(http.StatusOK, "programs.html", programsPage{Programs: programs})
}

type decisionReq struct {
	Action string `json:"action"`
	AppID  string `json:"app_id"`
}

// UpdateApplication applies an accept or reject decision.
func (h *AdminHandler) UpdateApplication(c echo.Context) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status, err := h.Admissions.Decide(ctx, middleware.CurrentIdentity(c), req.AppID, req.Action)
	if err != nil {
		return c.JSON(statusFor(err), echo.Map{"success": false, "message": publicMessage(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "new_status": status})
}
