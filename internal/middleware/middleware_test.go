package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/admissions-portal/portal/internal/auth"
    "github.com/admissions-portal/portal/internal/config"
    "github.com/admissions-portal/portal/internal/model"
    "github.com/admissions-portal/portal/internal/utils"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
    e := echo.New()
    e.Use(Session(secret))
    whoami := func(c echo.Context) error {
        id := CurrentIdentity(c)
        if ctxID := auth.FromContext(c.Request().Context()); ctxID != id {
            return c.String(http.StatusInternalServerError, "context mismatch")
        }
        return c.String(http.StatusOK, id.UserID)
    }
    e.GET("/whoami", whoami)
    e.GET("/admin", whoami, RequireAdmin())
    e.GET("/mine", whoami, RequireApplicant())
    e.POST("/update", whoami, RequireAdminJSON())
    return e
}

func withSession(t *testing.T, req *http.Request, id auth.Identity, ttl time.Duration) {
    t.Helper()
    tok, err := utils.NewSessionToken(secret, id, ttl)
    require.NoError(t, err)
    req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok.Token})
}

func TestSessionResolvesIdentity(t *testing.T) {
    e := newEcho()
    req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
    withSession(t, req, auth.Identity{UserID: "U1001", Role: model.RoleApplicant}, time.Hour)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "U1001", rec.Body.String())
}

func TestSessionTamperedCookieIsAnonymous(t *testing.T) {
    e := newEcho()
    req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
    req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-token"})
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Body.String())
    assert.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookie+"=;")
}

func TestSessionExpiredCookieIsAnonymous(t *testing.T) {
    e := newEcho()
    req := httptest.NewRequest(http.MethodGet, "/admin", nil)
    withSession(t, req, auth.Identity{UserID: "ADMIN_001", Role: model.RoleAdmin}, -time.Minute)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusFound, rec.Code)
    assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestRoleGates(t *testing.T) {
    admin := auth.Identity{UserID: "ADMIN_001", Role: model.RoleAdmin}
    applicant := auth.Identity{UserID: "U1001", Role: model.RoleApplicant}

    cases := []struct {
        name   string
        method string
        path   string
        id     *auth.Identity
        status int
    }{
        {"admin page as admin", http.MethodGet, "/admin", &admin, http.StatusOK},
        {"admin page as applicant", http.MethodGet, "/admin", &applicant, http.StatusFound},
        {"admin page anonymous", http.MethodGet, "/admin", nil, http.StatusFound},
        {"applicant page as applicant", http.MethodGet, "/mine", &applicant, http.StatusOK},
        {"applicant page as admin", http.MethodGet, "/mine", &admin, http.StatusFound},
        {"json endpoint as admin", http.MethodPost, "/update", &admin, http.StatusOK},
        {"json endpoint as applicant", http.MethodPost, "/update", &applicant, http.StatusUnauthorized},
        {"json endpoint anonymous", http.MethodPost, "/update", nil, http.StatusUnauthorized},
    }
    e := newEcho()
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            req := httptest.NewRequest(tc.method, tc.path, nil)
            if tc.id != nil {
                withSession(t, req, *tc.id, time.Hour)
            }
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)
            assert.Equal(t, tc.status, rec.Code)
            if tc.status == http.StatusUnauthorized {
                assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
            }
        })
    }
}

func TestStartAndClearSession(t *testing.T) {
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login_action", nil), rec)

    id := auth.Identity{UserID: "U1001", Role: model.RoleApplicant}
    require.NoError(t, StartSession(c, secret, id, time.Hour))
    assert.Equal(t, id, CurrentIdentity(c))

    cookies := rec.Result().Cookies()
    require.Len(t, cookies, 1)
    assert.True(t, cookies[0].HttpOnly)
    parsed, err := utils.ParseSessionToken(secret, cookies[0].Value)
    require.NoError(t, err)
    assert.Equal(t, id, parsed)

    rec = httptest.NewRecorder()
    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/logout", nil), rec)
    ClearSession(c)
    cookies = rec.Result().Cookies()
    require.Len(t, cookies, 1)
    assert.Empty(t, cookies[0].Value)
    assert.Negative(t, cookies[0].MaxAge)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
    mr, err := miniredis.Run()
    require.NoError(t, err)
    defer mr.Close()
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()

    cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute, TTL: 10 * time.Minute, Prefix: "rl"}
    e := echo.New()
    e.POST("/login_action", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    post := func(ip string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodPost, "/login_action", nil)
        req.RemoteAddr = ip + ":5555"
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }

    assert.Equal(t, http.StatusOK, post("10.0.0.1").Code)
    second := post("10.0.0.1")
    assert.Equal(t, http.StatusOK, second.Code)
    assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

    blocked := post("10.0.0.1")
    assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
    assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

    // buckets are per client
    assert.Equal(t, http.StatusOK, post("10.0.0.2").Code)
    assert.True(t, mr.Exists("rl:ip:10.0.0.1:route:POST /login_action"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
    mr, err := miniredis.Run()
    require.NoError(t, err)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    defer rdb.Close()
    mr.Close()

    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
    e := echo.New()
    e.POST("/login_action", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    for range 3 {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login_action", nil))
        assert.Equal(t, http.StatusOK, rec.Code)
    }
}

func TestTokenBucketDisabled(t *testing.T) {
    mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, zap.NewNop())
    called := false
    h := mw(func(c echo.Context) error { called = true; return nil })
    e := echo.New()
    require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
    assert.True(t, called)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
    e := echo.New()
    e.Use(RequestLogger(zap.NewNop()))
    e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
    assert.Equal(t, http.StatusTeapot, rec.Code)
}
