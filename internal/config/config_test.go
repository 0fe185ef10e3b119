package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv("SESSION_SECRET", "s3cret")
    t.Setenv("DB_USER", "portal")

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, "sql", cfg.Backend)
    assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
    assert.Equal(t, "ADMIN_001", cfg.AdminUserID)
    assert.Equal(t, 50, cfg.DashboardLimit)
    assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
    assert.True(t, cfg.RateLimit.Enabled)
    assert.Equal(t, 10, cfg.RateLimit.Capacity)
    assert.Equal(t, 5*time.Minute, cfg.CatalogCache.TTL)
    assert.Equal(t, "portal:@tcp(127.0.0.1:3306)/admissions?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())
}

func TestLoadRequiresSessionSecret(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv("SESSION_SECRET", "")
    t.Setenv("DB_USER", "portal")

    _, err := Load()
    assert.ErrorContains(t, err, "SESSION_SECRET")

    _, err = LoadTool()
    assert.NoError(t, err)
}

func TestLoadBackendSelection(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv("SESSION_SECRET", "x")
    t.Setenv("DB_USER", "")
    t.Setenv("STORE_BACKEND", "CSV")
    t.Setenv("CSV_DIR", "/srv/data")

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "csv", cfg.Backend)
    assert.Equal(t, "/srv/data", cfg.CSVDir)

    t.Setenv("STORE_BACKEND", "sql")
    _, err = Load()
    assert.ErrorContains(t, err, "DB_USER")

    t.Setenv("STORE_BACKEND", "mongo")
    _, err = Load()
    assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestRedisHostPortWinsOverAddr(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv("SESSION_SECRET", "x")
    t.Setenv("DB_USER", "portal")
    t.Setenv("REDIS_ADDR", "cache:6379")
    t.Setenv("REDIS_HOST", "redis")
    t.Setenv("REDIS_PORT", "6380")

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestEnvFileIsLoaded(t *testing.T) {
    dir := t.TempDir()
    t.Chdir(dir)
    t.Setenv("DB_USER", "portal")
    // godotenv never overrides variables that are present, even empty ones
    for _, k := range []string{"SESSION_SECRET", "APP_PORT"} {
        t.Setenv(k, "")
        require.NoError(t, os.Unsetenv(k))
    }
    require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SESSION_SECRET=from-file\nAPP_PORT=9090\n"), 0o600))

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "from-file", cfg.SessionSecret)
    assert.Equal(t, "9090", cfg.Port)
}

func TestRateLimitNormalize(t *testing.T) {
    rl := RateLimitConfig{Capacity: 0, RefillTokens: -3, RefillInterval: 0, TTL: time.Second}.Normalize()
    assert.Equal(t, 1, rl.Capacity)
    assert.Equal(t, 1, rl.RefillTokens)
    assert.Equal(t, time.Second, rl.RefillInterval)
    assert.Equal(t, 5*time.Second, rl.TTL)
    assert.Equal(t, "rl", rl.Prefix)
}
