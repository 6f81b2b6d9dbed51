package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbEnvKeys = []string{
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"DB_SSLMODE", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
}

// clearDBEnv blanks every DB_* variable for the duration of the test.
func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, key := range dbEnvKeys {
		t.Setenv(key, "")
	}
}

// requirePostgres connects using DB_* variables or skips when DB_HOST is unset.
func requirePostgres(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
	}
	sqlDB, err := Connect(NewConfigFromEnv())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearDBEnv(t)

		cfg := NewConfigFromEnv()

		assert.Equal(t, &Config{
			Host:            "localhost",
			Port:            5432,
			Database:        "achievement_service",
			User:            "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		}, cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		clearDBEnv(t)
		t.Setenv("DB_HOST", "badges-db.internal")
		t.Setenv("DB_PORT", "6432")
		t.Setenv("DB_NAME", "badges")
		t.Setenv("DB_USER", "engine")
		t.Setenv("DB_PASSWORD", "s3cret")
		t.Setenv("DB_SSLMODE", "verify-full")
		t.Setenv("DB_MAX_OPEN_CONNS", "40")
		t.Setenv("DB_MAX_IDLE_CONNS", "8")
		t.Setenv("DB_CONN_MAX_LIFETIME", "900")
		t.Setenv("DB_CONN_MAX_IDLE_TIME", "60")

		cfg := NewConfigFromEnv()

		assert.Equal(t, "badges-db.internal", cfg.Host)
		assert.Equal(t, 6432, cfg.Port)
		assert.Equal(t, "badges", cfg.Database)
		assert.Equal(t, "engine", cfg.User)
		assert.Equal(t, "s3cret", cfg.Password)
		assert.Equal(t, "verify-full", cfg.SSLMode)
		assert.Equal(t, 40, cfg.MaxOpenConns)
		assert.Equal(t, 8, cfg.MaxIdleConns)
		assert.Equal(t, 15*time.Minute, cfg.ConnMaxLifetime)
		assert.Equal(t, time.Minute, cfg.ConnMaxIdleTime)
	})

	t.Run("unparsable numbers fall back", func(t *testing.T) {
		clearDBEnv(t)
		t.Setenv("DB_PORT", "five-four-three-two")
		t.Setenv("DB_MAX_OPEN_CONNS", "lots")

		cfg := NewConfigFromEnv()

		assert.Equal(t, 5432, cfg.Port)
		assert.Equal(t, 25, cfg.MaxOpenConns)
	})
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "valid", value: "200", want: 200},
		{name: "zero", value: "0", want: 0},
		{name: "negative", value: "-50", want: -50},
		{name: "unset", value: "", want: 100},
		{name: "garbage", value: "12abc", want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BADGE_TEST_INT", tt.value)
			assert.Equal(t, tt.want, getEnvAsInt("BADGE_TEST_INT", 100))
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db",
		Port:     5432,
		Database: "badges",
		User:     "engine",
		Password: "pw",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 dbname=badges user=engine password=pw sslmode=disable", cfg.DSN())
}

func TestConnect_UnreachableHost(t *testing.T) {
	cfg := &Config{
		Host:     "nonexistent.invalid",
		Port:     5432,
		Database: "badges",
		User:     "engine",
		SSLMode:  "disable",
	}

	sqlDB, err := Connect(cfg)

	require.Error(t, err)
	assert.Nil(t, sqlDB)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestHealth(t *testing.T) {
	t.Run("nil connection", func(t *testing.T) {
		err := Health(nil)
		assert.EqualError(t, err, "database unhealthy: nil connection")
	})

	t.Run("live connection", func(t *testing.T) {
		sqlDB := requirePostgres(t)
		assert.NoError(t, Health(sqlDB))
	})

	t.Run("closed connection", func(t *testing.T) {
		sqlDB := requirePostgres(t)
		_ = sqlDB.Close()

		err := Health(sqlDB)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database unhealthy")
	})
}

func TestConnect_AppliesPoolSettings(t *testing.T) {
	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
	}

	cfg := NewConfigFromEnv()
	cfg.MaxOpenConns = 7
	cfg.MaxIdleConns = 2

	sqlDB, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestMigrate_Postgres(t *testing.T) {
	sqlDB := requirePostgres(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, sqlDB, DriverPostgres))
	require.NoError(t, Migrate(ctx, sqlDB, DriverPostgres))

	for _, table := range []string{"award_records", "holders_counters", "activity_records"} {
		var exists bool
		err := sqlDB.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}
}
