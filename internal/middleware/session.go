package middleware

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/admissions-portal/portal/internal/auth"
    "github.com/admissions-portal/portal/internal/utils"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "portal_session"

const identityKey = "identity"

// Session resolves the session cookie into an auth.Identity for every
// request. A missing, expired or tampered cookie yields auth.Anonymous
// and is cleared; the request itself is never rejected here.
func Session(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := auth.Anonymous
            if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
                if parsed, err := utils.ParseSessionToken(secret, ck.Value); err == nil {
                    id = parsed
                } else {
                    ClearSession(c)
                }
            }
            c.Set(identityKey, id)
            req := c.Request()
            c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
            return next(c)
        }
    }
}

// CurrentIdentity returns the identity resolved by Session.
func CurrentIdentity(c echo.Context) auth.Identity {
    if id, ok := c.Get(identityKey).(auth.Identity); ok {
        return id
    }
    return auth.FromContext(c.Request().Context())
}

// StartSession signs a session for id and sets it as an HttpOnly cookie.
func StartSession(c echo.Context, secret string, id auth.Identity, ttl time.Duration) error {
    tok, err := utils.NewSessionToken(secret, id, ttl)
    if err != nil {
        return err
    }
    c.SetCookie(&http.Cookie{
        Name:     SessionCookie,
        Value:    tok.Token,
        Path:     "/",
        Expires:  tok.Exp,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
        Secure:   c.IsTLS(),
    })
    c.Set(identityKey, id)
    return nil
}

// ClearSession expires the session cookie.
func ClearSession(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     SessionCookie,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}
