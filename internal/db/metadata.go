//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/pkg/version"
)

// MetadataTable holds key/value facts about how the schema was created.
const MetadataTable = "salesfeat_metadata"

// Keys written by SaveMetadata.
const (
	KeyVersion       = "version"
	KeyInitializedAt = "initialized_at"
)

// ErrNoMetadata is returned when a metadata key has not been recorded.
var ErrNoMetadata = errors.New("metadata key not found")

const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS salesfeat_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

const upsertMetadataSQL = `
INSERT INTO salesfeat_metadata (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

// SaveMetadata stamps the schema with the binary version and the current
// time, plus any extra entries.
func SaveMetadata(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, extra map[string]string) error {
	entries := map[string]string{
		KeyVersion:       version.Short(),
		KeyInitializedAt: time.Now().UTC().Format(time.RFC3339),
	}
	maps.Copy(entries, extra)

	if _, err := pool.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	batch := &pgx.Batch{}
	for key, value := range entries {
		batch.Queue(upsertMetadataSQL, key, value)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logger.Debug().Int("entries", len(entries)).Msg("Saved metadata")
	return nil
}

// GetMetadataValue returns one recorded value, or ErrNoMetadata.
func GetMetadataValue(ctx context.Context, pool *pgxpool.Pool, key string) (string, error) {
	var value string
	err := pool.QueryRow(ctx, `SELECT value FROM salesfeat_metadata WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoMetadata, key)
	}
	return value, err
}

type metadataEntry struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GetAllMetadata returns every recorded entry.
func GetAllMetadata(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	rows, _ := pool.Query(ctx, `SELECT key, value FROM salesfeat_metadata`)
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[metadataEntry])
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{MetadataTable}.Sanitize())
	return err
}

// MetadataExists reports whether SaveMetadata has run.
func MetadataExists(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	return TableExists(ctx, pool, MetadataTable)
}

// TableExists checks whether a table is visible on the search path.
func TableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
	return exists, err
}
