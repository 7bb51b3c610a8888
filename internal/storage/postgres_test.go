package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolConfig(t *testing.T) {
	cfg := testPostgresConfig()
	cfg.MaxConnections = 8
	cfg.MinConnections = 3
	cfg.MaxConnLifetime = 20 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 15 * time.Second
	cfg.ConnectTimeout = 3 * time.Second

	poolConfig, err := newPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(8), poolConfig.MaxConns)
	assert.Equal(t, int32(3), poolConfig.MinConns)
	assert.Equal(t, 20*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, 15*time.Second, poolConfig.HealthCheckPeriod)
	assert.Equal(t, 3*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, cfg.Database, poolConfig.ConnConfig.Database)
}

func TestNewPoolConfig_MinConnsCappedAtMax(t *testing.T) {
	cfg := testPostgresConfig()
	cfg.MaxConnections = 2
	cfg.MinConnections = 10

	poolConfig, err := newPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), poolConfig.MinConns)
}

func TestNewPoolConfig_UnsetDurationsKeepDefaults(t *testing.T) {
	cfg := testPostgresConfig()

	poolConfig, err := newPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, poolConfig.MaxConnLifetime)
	assert.Equal(t, time.Minute, poolConfig.HealthCheckPeriod)
}
