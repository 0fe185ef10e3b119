package config

import (
    "time"

    "github.com/spf13/viper"
)

// RateLimitConfig configures the Redis token bucket in front of the
// login and registration actions.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
}

func setRateLimitDefaults(v *viper.Viper) {
    v.SetDefault("RATE_LIMIT_ENABLED", true)
    v.SetDefault("RATE_LIMIT_CAPACITY", 10)
    v.SetDefault("RATE_LIMIT_REFILL_TOKENS", 1)
    v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second)
    v.SetDefault("RATE_LIMIT_TTL", 10*time.Minute)
    v.SetDefault("RATE_LIMIT_PREFIX", "rl")
}

func rateLimitFrom(v *viper.Viper) RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
        Capacity:       v.GetInt("RATE_LIMIT_CAPACITY"),
        RefillTokens:   v.GetInt("RATE_LIMIT_REFILL_TOKENS"),
        RefillInterval: v.GetDuration("RATE_LIMIT_REFILL_INTERVAL"),
        TTL:            v.GetDuration("RATE_LIMIT_TTL"),
        Prefix:         v.GetString("RATE_LIMIT_PREFIX"),
    }
    return rl.Normalize()
}

// Normalize clamps out-of-range values. The TTL never drops below five
// refill intervals so idle buckets are not evicted mid-refill.
func (rl RateLimitConfig) Normalize() RateLimitConfig {
    if rl.Capacity < 1 { rl.Capacity = 1 }
    if rl.RefillTokens < 1 { rl.RefillTokens = 1 }
    if rl.RefillInterval <= 0 { rl.RefillInterval = time.Second }
    if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL { rl.TTL = minTTL }
    if rl.Prefix == "" { rl.Prefix = "rl" }
    return rl
}

// CatalogCacheConfig configures the Redis cache in front of the program
// list.
type CatalogCacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

func setCatalogCacheDefaults(v *viper.Viper) {
    v.SetDefault("CATALOG_CACHE_ENABLED", true)
    v.SetDefault("CATALOG_CACHE_TTL", 5*time.Minute)
    v.SetDefault("CATALOG_CACHE_PREFIX", "catalog")
}

func catalogCacheFrom(v *viper.Viper) CatalogCacheConfig {
    return CatalogCacheConfig{
        Enabled: v.GetBool("CATALOG_CACHE_ENABLED"),
        TTL:     v.GetDuration("CATALOG_CACHE_TTL"),
        Prefix:  v.GetString("CATALOG_CACHE_PREFIX"),
    }
}
