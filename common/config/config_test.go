package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDatabase() DatabaseConfig {
	return DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Database: "red_esperanza", SSLMode: "disable"}
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "red_esperanza")
	t.Setenv("DB_MAX_CONNS", "20")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_URL", "")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", SSLMode: "disable"}
	require.NoError(t, cfg.LoadFromEnv("DB"))

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "red_esperanza", cfg.Database)
	assert.Equal(t, 20, cfg.MaxConns)
	assert.Equal(t, "postgres", cfg.User)
	assert.Equal(t,
		"host=db.internal port=6543 user=postgres password= dbname=red_esperanza sslmode=disable",
		cfg.GetDSN())
}

func TestDatabaseConfig_LoadFromEnvMalformedNumbers(t *testing.T) {
	t.Setenv("DB_PORT", "54x2")
	t.Setenv("DB_MAX_IDLE", "ten")

	cfg := validDatabase()
	err := cfg.LoadFromEnv("DB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `DB_PORT: invalid integer "54x2"`)
	assert.Contains(t, err.Error(), `DB_MAX_IDLE: invalid integer "ten"`)
	assert.Equal(t, 5432, cfg.Port)
}

func TestDatabaseConfig_URLWins(t *testing.T) {
	t.Setenv("DB_URL", "postgres://app:pw@db.example.co:5432/postgres?sslmode=require")

	cfg := DatabaseConfig{}
	require.NoError(t, cfg.LoadFromEnv("DB"))
	assert.Equal(t, "postgres://app:pw@db.example.co:5432/postgres?sslmode=require", cfg.GetDSN())
	// discrete fields are not needed alongside a URL
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *DatabaseConfig)
		wantErr string
	}{
		{"valid", func(c *DatabaseConfig) {}, ""},
		{"pool limits", func(c *DatabaseConfig) { c.MaxConns, c.MaxIdle = 10, 5 }, ""},
		{"idle over max", func(c *DatabaseConfig) { c.MaxConns, c.MaxIdle = 5, 10 }, "max idle (10) exceeds max conns (5)"},
		{"negative max conns", func(c *DatabaseConfig) { c.MaxConns = -1 }, "max conns must be >= 0"},
		{"negative idle", func(c *DatabaseConfig) { c.MaxIdle = -2 }, "max idle must be >= 0"},
		{"port", func(c *DatabaseConfig) { c.Port = 70000 }, "port out of range"},
		{"sslmode", func(c *DatabaseConfig) { c.SSLMode = "prefer-ish" }, `unsupported sslmode "prefer-ish"`},
		{"missing host", func(c *DatabaseConfig) { c.Host = "" }, "host is required"},
		{"missing name", func(c *DatabaseConfig) { c.Database = "" }, "database name is required"},
		{"url still checks pool", func(c *DatabaseConfig) { c.URL, c.Host, c.MaxIdle = "postgres://x", "", -1 }, "max idle must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDatabase()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "3")

	cfg := RedisConfig{Addr: "localhost:6379"}
	require.NoError(t, cfg.LoadFromEnv("REDIS"))

	assert.Equal(t, "cache:6379", cfg.Addr)
	assert.Equal(t, 3, cfg.DB)
	assert.NoError(t, cfg.Validate())
}

func TestRedisConfig_Validate(t *testing.T) {
	assert.ErrorContains(t, (&RedisConfig{Addr: "cache"}).Validate(), "host:port")
	assert.ErrorContains(t, (&RedisConfig{Addr: "cache:6379", DB: 16}).Validate(), "redis db out of range: 16")
	assert.NoError(t, (&RedisConfig{Addr: ":6379"}).Validate())
}
