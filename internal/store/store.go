//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store loads the input tables and persists the feature and WMAPE
// outputs. Two backends are provided: a directory of CSV files and a
// PostgreSQL database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/pipeline"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// ErrInputNotFound is returned when an input table or file does not exist.
var ErrInputNotFound = errors.New("input not found")

// Backend names accepted by Open.
const (
	KindCSV      = "csv"
	KindPostgres = "postgres"
)

// Kinds lists the supported backends.
func Kinds() []string {
	return []string{KindCSV, KindPostgres}
}

// Store reads the pipeline inputs and writes its outputs.
type Store interface {
	LoadProducts(ctx context.Context) ([]schema.Product, error)
	LoadBrands(ctx context.Context) ([]schema.Brand, error)
	LoadStores(ctx context.Context) ([]schema.Store, error)
	LoadSales(ctx context.Context) ([]schema.SalesRecord, error)

	// WriteFeatures replaces the features output. window names the MA/LAG
	// columns where the backend uses it.
	WriteFeatures(ctx context.Context, rows []schema.FeatureRow, window int) error

	// WriteMapes replaces the WMAPE output.
	WriteMapes(ctx context.Context, rows []schema.WmapeRow) error

	Close() error
}

// InputWriter replaces the input tables. The generator writes through it.
type InputWriter interface {
	WriteProducts(ctx context.Context, rows []schema.Product) error
	WriteBrands(ctx context.Context, rows []schema.Brand) error
	WriteStores(ctx context.Context, rows []schema.Store) error
	WriteSales(ctx context.Context, rows []schema.SalesRecord) error
}

// Run describes one completed pipeline run.
type Run struct {
	ID          uuid.UUID
	Started     time.Time
	Finished    time.Time
	MinDate     time.Time
	MaxDate     time.Time
	Top         int
	Window      int
	SalesRows   int
	FeatureRows int
	Groups      int
}

// RunFromResult describes res as produced with opts.
func RunFromResult(res *pipeline.Result, opts pipeline.Options) Run {
	return Run{
		ID:          res.RunID,
		Started:     res.Started,
		Finished:    res.Finished,
		MinDate:     opts.Dates.Start(),
		MaxDate:     opts.Dates.End(),
		Top:         opts.Top,
		Window:      opts.Window,
		SalesRows:   res.SalesKept,
		FeatureRows: len(res.Features),
		Groups:      res.Groups,
	}
}

// RunRecorder is implemented by backends that keep a history of runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// ResultWriter is implemented by stores that save a whole result atomically.
type ResultWriter interface {
	WriteResult(ctx context.Context, features []schema.FeatureRow, mapes []schema.WmapeRow, run Run) error
}

// Options select and configure a backend.
type Options struct {
	Kind       string
	Connection string
	InputDir   string
	OutputDir  string
	MaxConns   int32
}

// Open returns the backend named by opts.Kind.
func Open(ctx context.Context, logger zerolog.Logger, opts Options) (Store, error) {
	switch opts.Kind {
	case KindCSV, "":
		return NewCSVStore(logger, opts.InputDir, opts.OutputDir), nil
	case KindPostgres:
		return NewPostgresStore(ctx, logger, opts.Connection, opts.MaxConns)
	default:
		return nil, fmt.Errorf("unknown store %q, want one of %v", opts.Kind, Kinds())
	}
}

// LoadInputs reads every input table from s.
func LoadInputs(ctx context.Context, s Store) (pipeline.Inputs, error) {
	var in pipeline.Inputs
	var err error
	if in.Products, err = s.LoadProducts(ctx); err != nil {
		return in, err
	}
	if in.Brands, err = s.LoadBrands(ctx); err != nil {
		return in, err
	}
	if in.Stores, err = s.LoadStores(ctx); err != nil {
		return in, err
	}
	if in.Sales, err = s.LoadSales(ctx); err != nil {
		return in, err
	}
	return in, nil
}

// SaveResult writes the outputs of res and records the run when s keeps a
// history. Stores without a ResultWriter write features then mapes, so a
// failure on mapes can leave new features beside the previous mapes.
func SaveResult(ctx context.Context, s Store, res *pipeline.Result, opts pipeline.Options) error {
	if w, ok := s.(ResultWriter); ok {
		return w.WriteResult(ctx, res.Features, res.Mapes, RunFromResult(res, opts))
	}
	if err := s.WriteFeatures(ctx, res.Features, opts.Window); err != nil {
		return err
	}
	if err := s.WriteMapes(ctx, res.Mapes); err != nil {
		return err
	}
	if rec, ok := s.(RunRecorder); ok {
		return rec.RecordRun(ctx, RunFromResult(res, opts))
	}
	return nil
}
