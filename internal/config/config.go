package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	ExpectedOrigin       string
	TokenBackend         string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	TokenTTL             time.Duration
	CleanupInterval      time.Duration
	TokenBytes           int
	MinTokenLength       int
	TokenHeader          string
	StoreTimeout         time.Duration
	IdentityURL          string
	ServiceName          string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	expectedOrigin := strings.TrimSpace(os.Getenv("EXPECTED_ORIGIN"))
	if expectedOrigin == "" {
		return Config{}, fmt.Errorf("EXPECTED_ORIGIN is required")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		ExpectedOrigin:       strings.TrimRight(expectedOrigin, "/"),
		TokenBackend:         getEnv("TOKEN_BACKEND", "postgres"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		TokenTTL:             getDuration("CSRF_TOKEN_TTL", 30*time.Minute),
		CleanupInterval:      getDuration("CSRF_CLEANUP_INTERVAL", 5*time.Minute),
		TokenBytes:           getInt("CSRF_TOKEN_BYTES", 32),
		MinTokenLength:       getInt("CSRF_MIN_TOKEN_LENGTH", 16),
		TokenHeader:          getEnv("CSRF_TOKEN_HEADER", "X-CSRF-Token"),
		StoreTimeout:         getDuration("STORE_TIMEOUT", 3*time.Second),
		IdentityURL:          os.Getenv("IDENTITY_URL"),
		ServiceName:          getEnv("SERVICE_NAME", "deedflow-antiforgery"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{expectedOrigin}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-CSRF-Token"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	switch cfg.TokenBackend {
	case "postgres", "redis":
	default:
		return Config{}, fmt.Errorf("TOKEN_BACKEND must be postgres or redis, got %q", cfg.TokenBackend)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.TokenBytes < 32 {
		cfg.TokenBytes = 32
	}
	if cfg.MinTokenLength < 16 {
		cfg.MinTokenLength = 16
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
