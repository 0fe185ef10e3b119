package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/admissions-portal/portal/internal/metrics"
)

// RequestLogger logs one line per request and records its duration in
// the HTTP histogram, labelled by route pattern rather than raw path.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            elapsed := time.Since(start)
            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.HTTPRequestDuration.
                WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
                Observe(elapsed.Seconds())

            fields := []zap.Field{
                zap.String("method", c.Request().Method),
                zap.String("path", c.Request().URL.Path),
                zap.Int("status", status),
                zap.Duration("latency", elapsed),
                zap.String("ip", c.RealIP()),
            }
            if id := CurrentIdentity(c); id.Authenticated() {
                fields = append(fields, zap.String("user_id", id.UserID))
            }
            switch {
            case status >= 500:
                log.Error("request", append(fields, zap.Error(err))...)
            case status >= 400:
                log.Warn("request", fields...)
            default:
                log.Info("request", fields...)
            }
            return nil
        }
    }
}
