package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/admissions-portal/portal/internal/middleware"
	"github.com/admissions-portal/portal/internal/service"
)

// ApplicantHandler serves the application form and the applicant's own
// application list.
type ApplicantHandler struct {
	Admissions *service.Admissions
	Catalog    *service.Catalog
	MasterList *service.MasterList
}

func NewApplicantHandler(adm *service.Admissions, cat *service.Catalog, ml *service.MasterList) *ApplicantHandler {
	return &ApplicantHandler{Admissions: adm, Catalog: cat, MasterList: ml}
}

type applyPage struct {
	Programs []service.ProgramView
}

type submittedPage struct {
	Result service.SubmissionResult
	SAT    string
}

type myApplicationsPage struct {
	Applications []service.MasterRecord
}

// ApplyPage renders the application form with the program catalog.
func (h *ApplicantHandler) ApplyPage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	programs, err := h.Catalog.ListPrograms(ctx)
	if err != nil {
		return renderError(c, err, "/apply")
	}
	return c.Render(http.StatusOK, "apply.html", applyPage{Programs: programs})
}

// Submit records a new application. Failures render an error fragment
// with a link back to the form.
func (h *ApplicantHandler) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	form := service.SubmissionForm{
		FirstName:   c.FormValue("first_name"),
		LastName:    c.FormValue("last_name"),
		DOB:         c.FormValue("dob"),
		Gender:      c.FormValue("gender"),
		Country:     c.FormValue("country"),
		City:        c.FormValue("city"),
		GPA:         c.FormValue("gpa"),
		SATScore:    c.FormValue("sat_score"),
		IsFirstGen:  checked(c, "is_first_gen"),
		Scholarship: checked(c, "scholarship"),
		Achievement: c.FormValue("achievement"),
		ProgramID:   c.FormValue("program_id"),
		SOPText:     c.FormValue("sop_text"),
	}
	res, err := h.Admissions.Submit(ctx, middleware.CurrentIdentity(c), form)
	if err != nil {
		return renderError(c, err, "/apply")
	}
	return c.Render(http.StatusOK, "submitted.html", submittedPage{Result: res, SAT: form.SATScore})
}

// MyApplications lists the caller's applications, newest first.
func (h *ApplicantHandler) MyApplications(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list := h.MasterList.ForUser(ctx, middleware.CurrentIdentity(c).UserID)
	return c.Render(http.StatusOK, "my_application.html", myApplicationsPage{Applications: list})
}

// checked reports whether an HTML checkbox was submitted.
func checked(c echo.Context, name string) bool {
	return c.FormValue(name) != ""
}
