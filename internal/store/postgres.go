//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/db"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
	"github.com/pgEdge/pgedge-salesfeat/pkg/version"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Table names used by PostgresStore.
const (
	TableProduct  = "product"
	TableBrand    = "brand"
	TableStore    = "store"
	TableSales    = "sales"
	TableFeatures = "features"
	TableMapes    = "mapes"
	TableRuns     = "salesfeat_runs"
)

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS brand (
        id   TEXT PRIMARY KEY,
        name TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS product (
        id    TEXT PRIMARY KEY,
        brand TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS store (
        id   TEXT PRIMARY KEY,
        name TEXT,
        city TEXT
    )`,
	`CREATE TABLE IF NOT EXISTS sales (
        date       DATE NOT NULL,
        store_id   TEXT NOT NULL,
        product_id TEXT NOT NULL,
        quantity   DOUBLE PRECISION NOT NULL CHECK (quantity >= 0)
    )`,
	`CREATE INDEX IF NOT EXISTS sales_date_idx ON sales (date)`,
	`CREATE TABLE IF NOT EXISTS features (
        product_id    TEXT NOT NULL,
        store_id      TEXT NOT NULL,
        date          DATE NOT NULL,
        sales_product DOUBLE PRECISION NOT NULL,
        ma_p          DOUBLE PRECISION,
        lag_p         DOUBLE PRECISION,
        brand_name    TEXT,
        brand_id      TEXT,
        sales_brand   DOUBLE PRECISION,
        ma_b          DOUBLE PRECISION,
        lag_b         DOUBLE PRECISION,
        sales_store   DOUBLE PRECISION,
        ma_s          DOUBLE PRECISION,
        lag_s         DOUBLE PRECISION
    )`,
	`CREATE TABLE IF NOT EXISTS mapes (
        rank       INTEGER PRIMARY KEY,
        product_id TEXT NOT NULL,
        store_id   TEXT NOT NULL,
        brand_id   TEXT,
        wmape      DOUBLE PRECISION
    )`,
	`CREATE TABLE IF NOT EXISTS salesfeat_runs (
        run_id       UUID PRIMARY KEY,
        started_at   TIMESTAMPTZ NOT NULL,
        finished_at  TIMESTAMPTZ NOT NULL,
        min_date     DATE NOT NULL,
        max_date     DATE NOT NULL,
        top_n        INTEGER NOT NULL,
        window_size  INTEGER NOT NULL,
        sales_rows   INTEGER NOT NULL,
        feature_rows INTEGER NOT NULL,
        group_count  INTEGER NOT NULL,
        version      TEXT NOT NULL
    )`,
}

var featureColumns = []string{
	"product_id", "store_id", "date", "sales_product", "ma_p", "lag_p",
	"brand_name", "brand_id", "sales_brand", "ma_b", "lag_b",
	"sales_store", "ma_s", "lag_s",
}

// PostgresStore keeps tables in a PostgreSQL database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects to connString.
func NewPostgresStore(ctx context.Context, logger zerolog.Logger, connString string, maxConns int32) (*PostgresStore, error) {
	logger = logging.Component(logger, "postgres-store")
	pool, err := db.Connect(ctx, logger, connString, maxConns)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// NewPostgresStoreFromPool wraps an existing pool. Close closes the pool.
func NewPostgresStoreFromPool(logger zerolog.Logger, pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logging.Component(logger, "postgres-store")}
}

// CreateSchema creates every table used by the store and records the
// schema version in the metadata table.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if err := db.SaveMetadata(ctx, s.pool, s.logger, map[string]string{"schema": "salesfeat"}); err != nil {
		return err
	}
	s.logger.Info().Msg("Created schema")
	return nil
}

// DropSchema drops every table used by the store.
func (s *PostgresStore) DropSchema(ctx context.Context) error {
	for _, t := range []string{TableRuns, TableMapes, TableFeatures, TableSales, TableStore, TableProduct, TableBrand} {
		if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{t}.Sanitize()); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t, err)
		}
	}
	if err := db.DropMetadata(ctx, s.pool); err != nil {
		return fmt.Errorf("failed to drop metadata: %w", err)
	}
	s.logger.Info().Msg("Dropped schema")
	return nil
}

// SchemaExists reports whether CreateSchema has run against the database.
func (s *PostgresStore) SchemaExists(ctx context.Context) (bool, error) {
	return db.MetadataExists(ctx, s.pool)
}

// SchemaInfo returns the metadata recorded when the schema was created.
func (s *PostgresStore) SchemaInfo(ctx context.Context) (map[string]string, error) {
	return db.GetAllMetadata(ctx, s.pool)
}

// SchemaVersion returns the pgedge-salesfeat version that created the schema.
func (s *PostgresStore) SchemaVersion(ctx context.Context) (string, error) {
	return db.GetMetadataValue(ctx, s.pool, db.KeyVersion)
}

// LoadProducts reads the product table.
func (s *PostgresStore) LoadProducts(ctx context.Context) ([]schema.Product, error) {
	return loadTable[schema.Product](ctx, s, TableProduct, `SELECT id, brand FROM product ORDER BY id`)
}

// LoadBrands reads the brand table.
func (s *PostgresStore) LoadBrands(ctx context.Context) ([]schema.Brand, error) {
	return loadTable[schema.Brand](ctx, s, TableBrand, `SELECT id, name FROM brand ORDER BY id`)
}

// LoadStores reads the store table. Null names and cities load as empty.
func (s *PostgresStore) LoadStores(ctx context.Context) ([]schema.Store, error) {
	return loadTable[schema.Store](ctx, s, TableStore,
		`SELECT id, COALESCE(name, '') AS name, COALESCE(city, '') AS city FROM store ORDER BY id`)
}

// LoadSales reads the sales table.
func (s *PostgresStore) LoadSales(ctx context.Context) ([]schema.SalesRecord, error) {
	return loadTable[schema.SalesRecord](ctx, s, TableSales,
		`SELECT date, store_id, product_id, quantity FROM sales`)
}

func loadTable[T any](ctx context.Context, s *PostgresStore, table, query string) ([]T, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, loadErr(table, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, loadErr(table, err)
	}
	for i := range out {
		if err := schema.Validate(out[i]); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", table, i+1, err)
		}
	}

	s.logger.Info().
		Str("table", table).
		Int("rows", len(out)).
		Msg("Loaded table")
	return out, nil
}

func loadErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: table %s", ErrInputNotFound, table)
	}
	return fmt.Errorf("failed to load %s: %w", table, err)
}

// WriteFeatures replaces the features table. Column names are fixed, the
// window length is recorded with the run instead.
func (s *PostgresStore) WriteFeatures(ctx context.Context, rows []schema.FeatureRow, _ int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.replaceFeatures(ctx, tx, rows)
	})
}

// WriteMapes replaces the mapes table. rank is 1 for the worst group.
func (s *PostgresStore) WriteMapes(ctx context.Context, rows []schema.WmapeRow) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.replaceMapes(ctx, tx, rows)
	})
}

// WriteResult replaces features and mapes and records run in one transaction,
// so a failed save leaves the previous outputs in place.
func (s *PostgresStore) WriteResult(ctx context.Context, features []schema.FeatureRow, mapes []schema.WmapeRow, run Run) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.replaceFeatures(ctx, tx, features); err != nil {
			return err
		}
		if err := s.replaceMapes(ctx, tx, mapes); err != nil {
			return err
		}
		return s.recordRun(ctx, tx, run)
	})
}

func (s *PostgresStore) replaceFeatures(ctx context.Context, tx pgx.Tx, rows []schema.FeatureRow) error {
	return s.replaceIn(ctx, tx, TableFeatures, featureColumns, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{
			r.ProductID, r.StoreID, r.Date, r.SalesProduct, r.MAProduct, r.LagProduct,
			r.BrandName, r.BrandID, r.SalesBrand, r.MABrand, r.LagBrand,
			r.SalesStore, r.MAStore, r.LagStore,
		}, nil
	})
}

func (s *PostgresStore) replaceMapes(ctx context.Context, tx pgx.Tx, rows []schema.WmapeRow) error {
	cols := []string{"rank", "product_id", "store_id", "brand_id", "wmape"}
	return s.replaceIn(ctx, tx, TableMapes, cols, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{i + 1, r.ProductID, r.StoreID, r.BrandID, r.WMAPE}, nil
	})
}

// WriteProducts replaces the product table.
func (s *PostgresStore) WriteProducts(ctx context.Context, rows []schema.Product) error {
	return s.replace(ctx, TableProduct, []string{"id", "brand"}, len(rows), func(i int) ([]any, error) {
		return []any{rows[i].ID, rows[i].BrandName}, nil
	})
}

// WriteBrands replaces the brand table.
func (s *PostgresStore) WriteBrands(ctx context.Context, rows []schema.Brand) error {
	return s.replace(ctx, TableBrand, []string{"id", "name"}, len(rows), func(i int) ([]any, error) {
		return []any{rows[i].ID, rows[i].Name}, nil
	})
}

// WriteStores replaces the store table.
func (s *PostgresStore) WriteStores(ctx context.Context, rows []schema.Store) error {
	return s.replace(ctx, TableStore, []string{"id", "name", "city"}, len(rows), func(i int) ([]any, error) {
		return []any{rows[i].ID, nullString(rows[i].Name), nullString(rows[i].City)}, nil
	})
}

// WriteSales replaces the sales table.
func (s *PostgresStore) WriteSales(ctx context.Context, rows []schema.SalesRecord) error {
	cols := []string{"date", "store_id", "product_id", "quantity"}
	return s.replace(ctx, TableSales, cols, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{r.Date, r.StoreID, r.ProductID, r.Quantity}, nil
	})
}

// RecordRun inserts run into salesfeat_runs.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	return s.recordRun(ctx, s.pool, run)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) recordRun(ctx context.Context, conn execer, run Run) error {
	_, err := conn.Exec(ctx, `
        INSERT INTO salesfeat_runs (run_id, started_at, finished_at, min_date, max_date,
            top_n, window_size, sales_rows, feature_rows, group_count, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, run.ID, run.Started, run.Finished, run.MinDate, run.MaxDate,
		run.Top, run.Window, run.SalesRows, run.FeatureRows, run.Groups, version.Short())
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	s.logger.Debug().Str("run_id", run.ID.String()).Msg("Recorded run")
	return nil
}

// RunCount returns how many runs have been recorded.
func (s *PostgresStore) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM salesfeat_runs`).Scan(&n)
	return n, err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// replace truncates table and copies n rows into it in one transaction.
func (s *PostgresStore) replace(ctx context.Context, table string, cols []string, n int, row func(int) ([]any, error)) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.replaceIn(ctx, tx, table, cols, n, row)
	})
}

// inTx runs fn in a transaction that is committed only when fn succeeds.
func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// replaceIn truncates table and copies n rows into it within tx.
func (s *PostgresStore) replaceIn(ctx context.Context, tx pgx.Tx, table string, cols []string, n int, row func(int) ([]any, error)) error {
	ident := pgx.Identifier{table}
	if _, err := tx.Exec(ctx, "TRUNCATE "+ident.Sanitize()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return fmt.Errorf("table %s does not exist, run init first: %w", table, err)
		}
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}
	copied, err := tx.CopyFrom(ctx, ident, cols, pgx.CopyFromSlice(n, row))
	if err != nil {
		return fmt.Errorf("failed to copy into %s: %w", table, err)
	}

	s.logger.Info().
		Str("table", table).
		Int64("rows", copied).
		Msg("Wrote table")
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

