package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagargautam500/storefront/pkg/config"
	"github.com/sagargautam500/storefront/pkg/logger"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.EqualError(t, err, "database DSN is required")

	_, err = New(context.Background(), config.DBConfig{DSN: "x", Driver: "oracle"}, nil)
	assert.EqualError(t, err, `unsupported database driver "oracle"`)
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{DSN: "file::memory:", Driver: " SQLite ", MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	var one int
	require.NoError(t, client.DB().Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestDriverDefaultsToPostgres(t *testing.T) {
	assert.Equal(t, "postgres", driverName(config.DBConfig{}))
	assert.Equal(t, "sqlite", driverName(config.DBConfig{Driver: "SQLITE"}))
}

func TestSlowQueriesReachServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Format: "json", Output: &buf})

	client, err := New(context.Background(), config.DBConfig{
		DSN:                "file::memory:",
		Driver:             "sqlite",
		SlowQueryThreshold: time.Nanosecond,
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().Exec("CREATE TABLE slow_probe (id INTEGER)").Error)
	assert.Contains(t, buf.String(), `"message":"db.query"`)
	assert.Contains(t, buf.String(), "slow_probe")
}
