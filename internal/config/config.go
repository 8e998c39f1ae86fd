package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-in-production"

// Token store kinds accepted by TOKEN_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
)

type Config struct {
	Port string
	Env  string

	// Upstream marketplace API.
	APIBaseURL string
	APITimeout time.Duration

	// Server-side token store.
	TokenStore    string
	TokenStoreDSN string
	TokenTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionCookieName  string
	CookieSecure       bool
	SessionIdleTimeout time.Duration

	// KeepTokenOnNetworkError keeps the stored token when session validation
	// fails for a transient reason (unreachable API, timeout, 5xx).
	KeepTokenOnNetworkError bool

	// Dev auth API.
	DevAPIPort string
	JWTSecret  string
	JWTExpiry  time.Duration
	DevAPISeed bool
}

func Load() Config {
	return Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		APIBaseURL:              strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8000/api"), "/"),
		APITimeout:              getEnvDuration("API_TIMEOUT", 10*time.Second),
		TokenStore:              strings.ToLower(getEnv("TOKEN_STORE", StoreMemory)),
		TokenStoreDSN:           getEnv("TOKEN_STORE_DSN", ""),
		TokenTTL:                getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		RedisAddr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		SessionCookieName:       getEnv("SESSION_COOKIE_NAME", "jobmatch_sid"),
		CookieSecure:            getEnvBool("COOKIE_SECURE", false),
		SessionIdleTimeout:      getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		KeepTokenOnNetworkError: getEnvBool("KEEP_TOKEN_ON_NETWORK_ERROR", false),
		DevAPIPort:              getEnv("DEVAPI_PORT", "8000"),
		JWTSecret:               getEnv("JWT_SECRET", devJWTSecret),
		JWTExpiry:               getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		DevAPISeed:              getEnvBool("DEVAPI_SEED", true),
	}
}

// Validate reports configuration that must not reach a running server.
func (c Config) Validate() error {
	var errs []error

	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production environment"))
	}

	switch c.TokenStore {
	case StoreMemory, StoreRedis:
	case StoreMySQL, StorePostgres:
		if c.TokenStoreDSN == "" {
			errs = append(errs, fmt.Errorf("TOKEN_STORE_DSN is required for %s token store", c.TokenStore))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore))
	}

	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvDuration accepts KEY as a Go duration ("45s") or KEY_SECONDS as an integer.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			return time.Duration(s) * time.Second
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

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
