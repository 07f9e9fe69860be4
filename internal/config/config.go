package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/gevengood/red-esperanza-backend/common/config"

	"github.com/joho/godotenv"
)

// Config red-esperanza HTTP API configuration
type Config struct {
	Env        string // development | production | test
	APIVersion string
	HTTP       struct {
		Addr        string
		CORSOrigin  string
		MaxBodySize int64
		TrustProxy  bool // honor X-Forwarded-For from a fronting proxy
	}
	DBEnabled    bool
	Database     commoncfg.DatabaseConfig
	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	Log          struct {
		Level  string
		Format string
	}
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Seed      SeedConfig
}

// JWTConfig token issuance settings
type JWTConfig struct {
	Secret     string
	ExpiresIn  time.Duration
	BcryptCost int
}

// RateLimitConfig fixed-window limit applied per client IP on /api/
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// StorageConfig object storage used for case photos
type StorageConfig struct {
	URL        string // e.g. https://xyz.supabase.co
	ServiceKey string
	Bucket     string
	MaxBytes   int64
}

// SeedConfig bootstrap administrator; empty email disables seeding
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the process environment, and
// validates the connection settings of the enabled backends.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.APIVersion = getEnv("API_VERSION", "v1")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")
	cfg.HTTP.CORSOrigin = getEnv("CORS_ORIGIN", "http://localhost:3000")
	cfg.HTTP.MaxBodySize = int64(parseInt(getEnv("HTTP_MAX_BODY_BYTES", "10485760"), 10<<20))
	cfg.HTTP.TrustProxy = getEnv("TRUST_PROXY", "false") == "true"

	// DB is optional in local dev: the service falls back to the in-memory store.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "red_esperanza",
		SSLMode:  "disable",
	}
	var errs []error
	errs = append(errs, cfg.Database.LoadFromEnv("DB"))

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	errs = append(errs, cfg.Redis.LoadFromEnv("REDIS"))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "default_secret_key")
	cfg.JWT.ExpiresIn = parseDuration(getEnv("JWT_EXPIRES_IN", "7d"), 7*24*time.Hour)
	cfg.JWT.BcryptCost = parseInt(getEnv("BCRYPT_COST", "10"), 10)

	cfg.RateLimit.Window = parseDuration(getEnv("RATE_LIMIT_WINDOW", "15m"), 15*time.Minute)
	cfg.RateLimit.MaxRequests = parseInt(getEnv("RATE_LIMIT_MAX_REQUESTS", "100"), 100)

	cfg.Storage.URL = strings.TrimRight(getEnv("STORAGE_URL", ""), "/")
	cfg.Storage.ServiceKey = getEnv("STORAGE_SERVICE_KEY", "")
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", "fotos-casos")
	cfg.Storage.MaxBytes = int64(parseInt(getEnv("UPLOAD_MAX_BYTES", "5242880"), 5<<20))

	cfg.Seed.AdminEmail = getEnv("SEED_ADMIN_EMAIL", "")
	cfg.Seed.AdminPassword = getEnv("SEED_ADMIN_PASSWORD", "")
	cfg.Seed.AdminName = getEnv("SEED_ADMIN_NAME", "Administrador")

	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings of the enabled backends.
func (c *Config) Validate() error {
	var errs []error
	if c.DBEnabled {
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.RedisEnabled {
		if err := c.Redis.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDuration accepts Go durations ("90m", "12h") and whole days ("7d").
func parseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return def
		}
		return time.Duration(n) * 24 * time.Hour
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
