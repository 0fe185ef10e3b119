package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/middleware"
	"github.com/admissions-portal/portal/internal/service"
)

// AuthHandler serves the login page and the session actions.
type AuthHandler struct {
	Accounts   *service.Accounts
	Secret     string
	SessionTTL time.Duration
	Log        *zap.Logger
}

func NewAuthHandler(accounts *service.Accounts, secret string, ttl time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Secret: secret, SessionTTL: ttl, Log: log}
}

type loginPage struct {
	Error   string
	Success string
}

// Index sends visitors to the login page.
func (h *AuthHandler) Index(c echo.Context) error {
	return c.Redirect(http.StatusFound, middleware.LoginPath)
}

// LoginPage renders the combined login and registration form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", loginPage{})
}

// LoginAction checks the credentials and starts a session. Admins land
// on the dashboard, applicants on their application list.
func (h *AuthHandler) LoginAction(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Accounts.Authenticate(ctx, c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		return c.Render(statusFor(err), "login.html", loginPage{Error: "Invalid credentials"})
	}
	if err := middleware.StartSession(c, h.Secret, id, h.SessionTTL); err != nil {
		h.Log.Error("start session failed", zap.Error(err))
		return renderError(c, err, middleware.LoginPath)
	}
	if id.IsAdmin() {
		return c.Redirect(http.StatusFound, "/admin_dashboard")
	}
	return c.Redirect(http.StatusFound, "/my_application")
}

// RegisterAction creates an applicant account and replays the login
// page with the outcome.
func (h *AuthHandler) RegisterAction(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Accounts.Register(ctx, c.FormValue("reg_email"), c.FormValue("reg_password")); err != nil {
		return c.Render(statusFor(err), "login.html", loginPage{Error: "Registration failed: " + publicMessage(err)})
	}
	return c.Render(http.StatusOK, "login.html", loginPage{Success: "Registration successful! Please login."})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	middleware.ClearSession(c)
	return c.Redirect(http.StatusFound, middleware.LoginPath)
}
