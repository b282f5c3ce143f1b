//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline sequences the feature stages: date filtering, hierarchy
// features, output ordering and WMAPE ranking.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/features"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// Stage names used in StageError.
const (
	StageValidate = "validate"
	StageFilter   = "filter"
	StageConvert  = "convert"
	StageFeatures = "features"
	StageSort     = "sort"
	StageScore    = "score"
)

// StageError reports which stage a fatal error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Options parameterize a run.
type Options struct {
	// Dates is the inclusive range of sales dates kept.
	Dates DateRange

	// Top is how many of the worst WMAPE groups are reported.
	Top int

	// Window is the MA/LAG length in rows.
	Window int

	// Workers bounds per-group window parallelism.
	Workers int
}

// DefaultOptions returns the options of a run with no overrides.
func DefaultOptions() Options {
	dates, _ := NewDateRange("2021-01-08", "2021-05-30")
	return Options{
		Dates:   dates,
		Top:     5,
		Window:  features.DefaultWindow,
		Workers: 4,
	}
}

// Validate checks the options before any work is done.
func (o Options) Validate() error {
	if o.Dates.IsZero() {
		return fmt.Errorf("date range is required")
	}
	if o.Top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", o.Top)
	}
	if o.Window < 1 {
		return fmt.Errorf("window must be at least 1, got %d", o.Window)
	}
	return nil
}

// Inputs are the loaded input tables.
type Inputs struct {
	Products []schema.Product
	Brands   []schema.Brand
	Stores   []schema.Store
	Sales    []schema.SalesRecord
}

// Result holds a run's outputs.
type Result struct {
	// RunID identifies the run in logs and stored metadata.
	RunID uuid.UUID

	// Features is sorted by product_id, brand_id, store_id, date.
	Features []schema.FeatureRow

	// Mapes is the worst Top groups by WMAPE, highest first.
	Mapes []schema.WmapeRow

	// SalesIn and SalesKept count sales records before and after filtering.
	SalesIn   int
	SalesKept int

	// Groups is how many groups were scored before ranking.
	Groups int

	Started  time.Time
	Finished time.Time
}

// Pipeline runs the feature stages.
type Pipeline struct {
	logger zerolog.Logger
	opts   Options
}

// New creates a pipeline. The logger is used for every stage.
func New(logger zerolog.Logger, opts Options) *Pipeline {
	return &Pipeline{
		logger: logging.Component(logger, "pipeline"),
		opts:   opts,
	}
}

// Run executes every stage in order. Any error aborts the run and is returned
// as a *StageError.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	res := &Result{RunID: uuid.New(), Started: time.Now().UTC(), SalesIn: len(in.Sales)}
	log := p.logger.With().Str("run_id", res.RunID.String()).Logger()

	if err := p.opts.Validate(); err != nil {
		return nil, stageErr(StageValidate, err)
	}

	log.Info().
		Str("min_date", p.opts.Dates.Start().Format(schema.DateLayout)).
		Str("max_date", p.opts.Dates.End().Format(schema.DateLayout)).
		Int("top", p.opts.Top).
		Int("window", p.opts.Window).
		Msg("Starting sales feature pipeline")

	sales := FilterSales(in.Sales, p.opts.Dates)
	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageFilter, err)
	}
	res.SalesKept = len(sales)
	log.Info().
		Int("rows_in", res.SalesIn).
		Int("rows_kept", res.SalesKept).
		Msg("Filtered sales to date range")

	salesTbl, err := schema.SalesTable(sales)
	if err != nil {
		return nil, stageErr(StageConvert, err)
	}
	productTbl, err := schema.ProductTable(in.Products)
	if err != nil {
		return nil, stageErr(StageConvert, err)
	}
	brandTbl, err := schema.BrandTable(in.Brands)
	if err != nil {
		return nil, stageErr(StageConvert, err)
	}

	builder := features.NewBuilder(log, p.opts.Window, p.opts.Workers)
	feats, err := builder.Build(ctx, salesTbl, productTbl, brandTbl)
	if err != nil {
		return nil, stageErr(StageFeatures, err)
	}

	feats, err = feats.SortBy(features.ColProductID, features.ColBrandID, features.ColStoreID, features.ColDate)
	if err != nil {
		return nil, stageErr(StageSort, err)
	}
	res.Features, err = schema.FeatureRows(feats, p.opts.Window)
	if err != nil {
		return nil, stageErr(StageSort, err)
	}

	scores, err := features.WMAPE(feats, features.DefaultScoreSpec(p.opts.Window))
	if err != nil {
		return nil, stageErr(StageScore, err)
	}
	res.Groups = scores.Len()
	top, err := features.TopN(scores, features.WMAPEColumn, p.opts.Top)
	if err != nil {
		return nil, stageErr(StageScore, err)
	}
	res.Mapes, err = schema.WmapeRows(top)
	if err != nil {
		return nil, stageErr(StageScore, err)
	}

	res.Finished = time.Now().UTC()
	log.Info().
		Int("feature_rows", len(res.Features)).
		Int("groups", res.Groups).
		Int("reported", len(res.Mapes)).
		Dur("elapsed", res.Finished.Sub(res.Started)).
		Msg("Sales feature pipeline complete")
	return res, nil
}
