//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report renders run results as an Excel workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pgEdge/pgedge-salesfeat/internal/pipeline"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// Sheet names in the workbook.
const (
	SheetMapes = "mapes"
	SheetRun   = "run"
)

// FileName is the workbook name written next to the CSV outputs.
const FileName = "mapes.xlsx"

// WriteXLSX writes the ranked WMAPE rows of res and a summary of the run to
// path.
func WriteXLSX(path string, res *pipeline.Result, opts pipeline.Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetMapes); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"rank", "product_id", "store_id", "brand_id", "WMAPE"}
	if err := f.SetSheetRow(SheetMapes, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range res.Mapes {
		row := []any{i + 1, r.ProductID, r.StoreID, deref(r.BrandID), deref(r.WMAPE)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetMapes, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(SheetRun); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	summary := [][]any{
		{"run_id", res.RunID.String()},
		{"min_date", opts.Dates.Start().Format(schema.DateLayout)},
		{"max_date", opts.Dates.End().Format(schema.DateLayout)},
		{"top", opts.Top},
		{"window", opts.Window},
		{"sales_rows", res.SalesKept},
		{"feature_rows", len(res.Features)},
		{"groups", res.Groups},
		{"finished_at", res.Finished.Format(time.RFC3339)},
	}
	for i, kv := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetRun, cell, &kv); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
