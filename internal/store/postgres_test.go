//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the PostgreSQL store.
// Run with: go test -tags=integration ./internal/store/...
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesfeat/internal/pipeline"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
	"github.com/pgEdge/pgedge-salesfeat/internal/testutil"
	"github.com/pgEdge/pgedge-salesfeat/pkg/version"
)

func newPostgresStore(t *testing.T, suite string) *PostgresStore {
	t.Helper()
	pool := testutil.NewTestDB(t, suite)
	return NewPostgresStoreFromPool(zerolog.Nop(), pool)
}

func TestPostgresMissingTable(t *testing.T) {
	s := newPostgresStore(t, "missing")

	_, err := s.LoadSales(context.Background())
	assert.ErrorIs(t, err, ErrInputNotFound)
}

func TestPostgresSchemaLifecycle(t *testing.T) {
	s := newPostgresStore(t, "schema")
	ctx := context.Background()

	exists, err := s.SchemaExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx), "schema creation should be idempotent")
	exists, err = s.SchemaExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := s.SchemaInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "salesfeat", info["schema"])
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, version.Short(), v)

	require.NoError(t, s.DropSchema(ctx))
	exists, err = s.SchemaExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostgresEndToEnd(t *testing.T) {
	s := newPostgresStore(t, "e2e")
	ctx := context.Background()
	require.NoError(t, s.CreateSchema(ctx))

	sales := testutil.SalesSeries("P1", "S1", 10, 20, 30, 40, 50, 60, 70, 80)
	require.NoError(t, s.WriteBrands(ctx, []schema.Brand{{ID: "B1", Name: "Acme"}}))
	require.NoError(t, s.WriteProducts(ctx, []schema.Product{{ID: "P1", BrandName: "Acme"}}))
	require.NoError(t, s.WriteStores(ctx, []schema.Store{{ID: "S1"}}))
	require.NoError(t, s.WriteSales(ctx, sales))

	inputs, err := LoadInputs(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, sales, inputs.Sales)
	assert.Equal(t, []schema.Store{{ID: "S1"}}, inputs.Stores)

	opts := pipeline.DefaultOptions()
	res, err := pipeline.New(zerolog.Nop(), opts).Run(ctx, inputs)
	require.NoError(t, err)
	require.NoError(t, SaveResult(ctx, s, res, opts))
	// A second save replaces the outputs rather than appending.
	require.NoError(t, s.WriteFeatures(ctx, res.Features, opts.Window))

	var n int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM features`).Scan(&n))
	assert.Equal(t, 8, n)

	var ma, lag float64
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT ma_p, lag_p FROM features WHERE date = '2021-02-08'`).Scan(&ma, &lag))
	assert.InDelta(t, 40.0, ma, 1e-9)
	assert.Equal(t, 10.0, lag)

	var wmape float64
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT wmape FROM mapes WHERE rank = 1`).Scan(&wmape))
	assert.InDelta(t, 0.5, wmape, 1e-9)

	runs, err := s.RunCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestPostgresSaveResultIsAtomic(t *testing.T) {
	s := newPostgresStore(t, "atomic")
	ctx := context.Background()
	require.NoError(t, s.CreateSchema(ctx))

	opts := pipeline.DefaultOptions()
	tables := testutil.AcmeTables()
	in := pipeline.Inputs{
		Products: tables.Products, Brands: tables.Brands, Stores: tables.Stores,
		Sales: testutil.SalesSeries("P1", "S1", 10, 20, 30, 40, 50, 60, 70, 80),
	}
	res, err := pipeline.New(zerolog.Nop(), opts).Run(ctx, in)
	require.NoError(t, err)
	require.NoError(t, SaveResult(ctx, s, res, opts))

	// Without a mapes table the second save fails and must not touch features.
	_, err = s.pool.Exec(ctx, `DROP TABLE mapes`)
	require.NoError(t, err)
	res.Features = res.Features[:3]
	require.Error(t, SaveResult(ctx, s, res, opts))

	var n int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM features`).Scan(&n))
	assert.Equal(t, 8, n)
	runs, err := s.RunCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}
