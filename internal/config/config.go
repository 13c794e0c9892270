package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for the payment service.
// Everything is read from environment variables once at startup so the
// services can be constructed with plain values instead of reaching into
// the environment themselves.
type Config struct {
	Port           string
	MainBackendURL string
	RedisURL       string

	// DefaultAmount is the flat parking fee in the smallest currency unit,
	// used when the locker has no usable dynamic fee.
	DefaultAmount int64
	// UseDynamicFee makes BuildSession prefer the upstream parking_fee
	// over DefaultAmount when it is positive.
	UseDynamicFee   bool
	DefaultBankCode string

	SessionTTL      time.Duration
	AccountCacheTTL time.Duration
	SweepInterval   time.Duration
}

// Load reads configuration from the environment, applying defaults that
// match the original deployment.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "3001"),
		MainBackendURL:  getEnv("MAIN_BACKEND_URL", "http://localhost:3000"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DefaultAmount:   getEnvInt64("PAY_DEFAULT_AMOUNT", 10000),
		UseDynamicFee:   getEnvBool("PAY_USE_DYNAMIC_FEE", true),
		DefaultBankCode: getEnv("PAY_DEFAULT_BANK_CODE", "970415"),
		SessionTTL:      getEnvDuration("PAY_SESSION_TTL", 30*time.Minute),
		AccountCacheTTL: getEnvDuration("PAY_ACCOUNT_CACHE_TTL", 30*time.Second),
		SweepInterval:   getEnvDuration("PAY_SWEEP_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
