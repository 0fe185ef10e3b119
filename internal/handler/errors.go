package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/admissions-portal/portal/internal/apperrors"
)

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPersistence), errors.Is(err, apperrors.ErrConcurrency):
		return http.StatusServiceUnavailable
	case errors.Is(err, echo.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to the caller. Storage failures never
// leak driver or file system details.
func publicMessage(err error) string {
	if apperrors.IsRetryable(err) || statusFor(err) == http.StatusInternalServerError {
		return "The service is temporarily unavailable. Please try again."
	}
	return apperrors.Message(err)
}

type errorPage struct {
	Title    string
	Message  string
	RetryURL string
}

// renderError renders the generic failure page with a link back to
// retryURL.
func renderError(c echo.Context, err error, retryURL string) error {
	status := statusFor(err)
	title := "Error"
	if status == http.StatusServiceUnavailable {
		title = "Service Unavailable"
	}
	return c.Render(status, "error.html", errorPage{Title: title, Message: publicMessage(err), RetryURL: retryURL})
}
