package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL      string
	APITimeout      time.Duration
	APIRateLimit    float64
	APIRateBurst    int
	CacheTTL        time.Duration
	CacheMaxEntries int
	StorePath       string
	LogLevel        string
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SALONBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 5)
	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("store.path", "salonbook.db")
	v.SetDefault("log.level", "info")

	_ = v.BindEnv("api.base_url", "SALONBOOK_API_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("api.timeout", "SALONBOOK_API_TIMEOUT")
	_ = v.BindEnv("api.rate_limit", "SALONBOOK_API_RATE_LIMIT")
	_ = v.BindEnv("api.rate_burst", "SALONBOOK_API_RATE_BURST")
	_ = v.BindEnv("cache.ttl", "SALONBOOK_CACHE_TTL")
	_ = v.BindEnv("cache.max_entries", "SALONBOOK_CACHE_MAX_ENTRIES")
	_ = v.BindEnv("store.path", "SALONBOOK_STORE_PATH", "STORE_PATH")
	_ = v.BindEnv("log.level", "SALONBOOK_LOG_LEVEL", "LOG_LEVEL")

	timeout, err := time.ParseDuration(v.GetString("api.timeout"))
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		APIBaseURL:      strings.TrimSpace(v.GetString("api.base_url")),
		APITimeout:      timeout,
		APIRateLimit:    v.GetFloat64("api.rate_limit"),
		APIRateBurst:    v.GetInt("api.rate_burst"),
		CacheTTL:        cacheTTL,
		CacheMaxEntries: v.GetInt("cache.max_entries"),
		StorePath:       v.GetString("store.path"),
		LogLevel:        v.GetString("log.level"),
	}, nil
}
