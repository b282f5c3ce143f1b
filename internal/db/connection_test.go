package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := PoolConfig("postgres://u@db.example:5433/retail", 0)
	require.NoError(t, err)

	assert.Equal(t, int32(DefaultMaxConns), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, "db.example", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
	assert.Equal(t, "retail", cfg.ConnConfig.Database)
	assert.Equal(t, ApplicationName, cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigMaxConns(t *testing.T) {
	cfg, err := PoolConfig("postgres://u@localhost/retail", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), cfg.MaxConns)
}

func TestPoolConfigKeepsApplicationName(t *testing.T) {
	cfg, err := PoolConfig("postgres://u@localhost/retail?application_name=nightly", 0)
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigInvalid(t *testing.T) {
	_, err := PoolConfig("postgres://u@localhost:notaport/retail", 0)
	assert.Error(t, err)
}
