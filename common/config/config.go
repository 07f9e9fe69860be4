package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// sslModes are the sslmode values lib/pq understands.
var sslModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// DatabaseConfig PostgreSQL connection settings. URL, when set, is a full
// connection string (the form hosted Postgres providers hand out) and wins
// over the discrete fields.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int // 0 leaves database/sql unlimited
	MaxIdle  int
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GetDSN returns the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv overrides fields from <prefix>_URL, <prefix>_HOST, <prefix>_PORT,
// ... when set. Malformed numbers are reported and leave the field unchanged.
func (c *DatabaseConfig) LoadFromEnv(prefix string) error {
	var errs []error
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.URL = url
	}
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	errs = append(errs, envInt(prefix+"_PORT", &c.Port))
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	errs = append(errs,
		envInt(prefix+"_MAX_CONNS", &c.MaxConns),
		envInt(prefix+"_MAX_IDLE", &c.MaxIdle),
	)
	return errors.Join(errs...)
}

// Validate checks the pool limits and, unless URL is set, the discrete
// connection fields.
func (c *DatabaseConfig) Validate() error {
	var errs []error
	if c.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("max conns must be >= 0, got %d", c.MaxConns))
	}
	if c.MaxIdle < 0 {
		errs = append(errs, fmt.Errorf("max idle must be >= 0, got %d", c.MaxIdle))
	}
	if c.MaxConns > 0 && c.MaxIdle > c.MaxConns {
		errs = append(errs, fmt.Errorf("max idle (%d) exceeds max conns (%d)", c.MaxIdle, c.MaxConns))
	}
	if c.URL != "" {
		return errors.Join(errs...)
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}
	if !sslModes[c.SSLMode] {
		errs = append(errs, fmt.Errorf("unsupported sslmode %q", c.SSLMode))
	}
	return errors.Join(errs...)
}

// LoadFromEnv overrides fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB.
func (c *RedisConfig) LoadFromEnv(prefix string) error {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	return envInt(prefix+"_DB", &c.DB)
}

// Validate checks that Addr is host:port and DB is one of the 16 default
// logical databases.
func (c *RedisConfig) Validate() error {
	var errs []error
	if _, port, err := net.SplitHostPort(c.Addr); err != nil || port == "" {
		errs = append(errs, fmt.Errorf("redis addr must be host:port, got %q", c.Addr))
	}
	if c.DB < 0 || c.DB > 15 {
		errs = append(errs, fmt.Errorf("redis db out of range: %d", c.DB))
	}
	return errors.Join(errs...)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}
