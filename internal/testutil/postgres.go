//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides fixtures and throwaway PostgreSQL databases for
// tests.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// ConnEnv names the environment variable holding the server used by
	// integration tests.
	ConnEnv = "PGEDGE_TEST_CONN"

	// DefaultTestConnString is used when ConnEnv is unset.
	DefaultTestConnString = "postgres://postgres@localhost:5432/postgres"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "salesfeat_test_"
)

// ServerConnString returns the connection string of the test server.
func ServerConnString() string {
	if conn := os.Getenv(ConnEnv); conn != "" {
		return conn
	}
	return DefaultTestConnString
}

// NewTestDB creates a database named after suite on the test server and
// returns a pool connected to it. The test is skipped when the server cannot
// be reached. The database is dropped after the test unless it failed, so a
// failing run can be inspected.
func NewTestDB(t *testing.T, suite string) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, ServerConnString())
	if err == nil {
		err = admin.Ping(ctx)
	}
	if err != nil {
		if admin != nil {
			admin.Close()
		}
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}

	name := TestDBPrefix + suite + "_" + strings.ReplaceAll(uuid.NewString()[:18], "-", "")
	ident := pgx.Identifier{name}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		admin.Close()
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	cfg := admin.Config().Copy()
	cfg.ConnConfig.Database = name
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		admin.Close()
		t.Fatalf("Failed to connect to test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		pool.Close()
		defer admin.Close()
		if t.Failed() {
			t.Logf("Test failed - keeping database %s for diagnostics", name)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
			t.Logf("Warning: failed to drop test database %s: %v", name, err)
		}
	})
	return pool
}
