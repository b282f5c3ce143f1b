// Package db provides PostgreSQL connection management for pgedge-salesfeat.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DefaultMaxConns is the pool size used when the caller passes zero.
const DefaultMaxConns = 8

// ApplicationName is reported to the server unless the connection string
// sets its own.
const ApplicationName = "pgedge-salesfeat"

// PoolOptions sizes and ages the connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolOptions returns the pool settings used by Connect.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          DefaultMaxConns,
		MinConns:          1,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
	}
}

// PoolConfig parses connString and applies the default pool options with
// maxConns connections. A maxConns of zero keeps DefaultMaxConns.
func PoolConfig(connString string, maxConns int32) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	opts := DefaultPoolOptions()
	if maxConns > 0 {
		opts.MaxConns = maxConns
	}
	config.MaxConns = opts.MaxConns
	config.MinConns = min(opts.MinConns, opts.MaxConns)
	config.MaxConnLifetime = opts.MaxConnLifetime
	config.MaxConnIdleTime = opts.MaxConnIdleTime
	config.HealthCheckPeriod = opts.HealthCheckPeriod

	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return config, nil
}

// Connect opens a pool to the database and checks it with a ping.
func Connect(ctx context.Context, logger zerolog.Logger, connString string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := PoolConfig(connString, maxConns)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("host", config.ConnConfig.Host).
		Uint16("port", config.ConnConfig.Port).
		Str("database", config.ConnConfig.Database).
		Int32("max_conns", config.MaxConns).
		Msg("Connecting to database")

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", config.ConnConfig.Host).
		Str("database", config.ConnConfig.Database).
		Msg("Connected to database")
	return pool, nil
}
