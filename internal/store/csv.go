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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// File names read from the input directory and written to the output
// directory.
const (
	ProductFile  = "product.csv"
	BrandFile    = "brand.csv"
	StoreFile    = "store.csv"
	SalesFile    = "sales.csv"
	FeaturesFile = "features.csv"
	MapesFile    = "mapes.csv"
)

// CSVStore keeps tables as CSV files with a header row.
type CSVStore struct {
	InputDir  string
	OutputDir string

	logger zerolog.Logger
}

// NewCSVStore creates a store over two directories. They may be the same.
func NewCSVStore(logger zerolog.Logger, inputDir, outputDir string) *CSVStore {
	return &CSVStore{
		InputDir:  inputDir,
		OutputDir: outputDir,
		logger:    logging.Component(logger, "csv-store"),
	}
}

// LoadProducts reads product.csv.
func (s *CSVStore) LoadProducts(ctx context.Context) ([]schema.Product, error) {
	return readCSV[schema.Product](ctx, s, "product", ProductFile)
}

// LoadBrands reads brand.csv.
func (s *CSVStore) LoadBrands(ctx context.Context) ([]schema.Brand, error) {
	return readCSV[schema.Brand](ctx, s, "brand", BrandFile)
}

// LoadStores reads store.csv.
func (s *CSVStore) LoadStores(ctx context.Context) ([]schema.Store, error) {
	return readCSV[schema.Store](ctx, s, "store", StoreFile)
}

// LoadSales reads sales.csv.
func (s *CSVStore) LoadSales(ctx context.Context) ([]schema.SalesRecord, error) {
	return readCSV[schema.SalesRecord](ctx, s, "sales", SalesFile)
}

// WriteFeatures writes features.csv.
func (s *CSVStore) WriteFeatures(ctx context.Context, rows []schema.FeatureRow, window int) error {
	return writeCSV(ctx, s, s.OutputDir, FeaturesFile, window, rows)
}

// WriteMapes writes mapes.csv.
func (s *CSVStore) WriteMapes(ctx context.Context, rows []schema.WmapeRow) error {
	return writeCSV(ctx, s, s.OutputDir, MapesFile, 0, rows)
}

// WriteProducts writes product.csv to the input directory.
func (s *CSVStore) WriteProducts(ctx context.Context, rows []schema.Product) error {
	return writeCSV(ctx, s, s.InputDir, ProductFile, 0, rows)
}

// WriteBrands writes brand.csv to the input directory.
func (s *CSVStore) WriteBrands(ctx context.Context, rows []schema.Brand) error {
	return writeCSV(ctx, s, s.InputDir, BrandFile, 0, rows)
}

// WriteStores writes store.csv to the input directory.
func (s *CSVStore) WriteStores(ctx context.Context, rows []schema.Store) error {
	return writeCSV(ctx, s, s.InputDir, StoreFile, 0, rows)
}

// WriteSales writes sales.csv to the input directory.
func (s *CSVStore) WriteSales(ctx context.Context, rows []schema.SalesRecord) error {
	return writeCSV(ctx, s, s.InputDir, SalesFile, 0, rows)
}

// Close is a no-op.
func (s *CSVStore) Close() error {
	return nil
}

func readCSV[T any](ctx context.Context, s *CSVStore, table, name string) ([]T, error) {
	path := filepath.Join(s.InputDir, name)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty, want a header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	dec, err := schema.NewDecoder[T](table, header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var out []T
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, err := dec.Decode(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, v)
	}

	s.logger.Info().
		Str("table", table).
		Str("path", path).
		Int("rows", len(out)).
		Msg("Loaded table")
	return out, nil
}

func writeCSV[T any](ctx context.Context, s *CSVStore, dir, name string, window int, rows []T) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	enc := schema.NewEncoder[T](window)
	w := csv.NewWriter(file)
	if err := w.Write(enc.Header()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for i, row := range rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(enc.Encode(row)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Msg("Wrote table")
	return nil
}
