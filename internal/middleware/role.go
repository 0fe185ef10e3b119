package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/admissions-portal/portal/internal/auth"
)

// LoginPath is where page routes send callers without the right role.
const LoginPath = "/login"

// RequireAdmin guards admin pages. Callers without an admin session are
// redirected to the login page.
func RequireAdmin() echo.MiddlewareFunc {
    return gate(auth.Identity.IsAdmin, redirectToLogin)
}

// RequireApplicant guards applicant pages the same way.
func RequireApplicant() echo.MiddlewareFunc {
    return gate(auth.Identity.IsApplicant, redirectToLogin)
}

// RequireAdminJSON guards admin JSON endpoints with a 401 response.
func RequireAdminJSON() echo.MiddlewareFunc {
    return gate(auth.Identity.IsAdmin, func(c echo.Context) error {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
    })
}

func gate(allowed func(auth.Identity) bool, deny echo.HandlerFunc) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed(CurrentIdentity(c)) {
                return deny(c)
            }
            return next(c)
        }
    }
}

func redirectToLogin(c echo.Context) error {
    return c.Redirect(http.StatusFound, LoginPath)
}
