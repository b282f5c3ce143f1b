//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package features computes the rolling, lagged and hierarchical demand
// features and scores the naive forecast they imply.
package features

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
)

// WindowSpec describes a per-group window computation.
type WindowSpec struct {
	// Output is the name of the column to add.
	Output string

	// GroupBy is the entity the window is scoped to.
	GroupBy []string

	// OrderBy orders rows within a group, usually the date column.
	OrderBy string

	// Value is the column the window reads.
	Value string

	// Size is the window length in rows.
	Size int

	// Workers bounds how many groups are computed at once (<= 1 means serial).
	Workers int
}

// windowFunc returns one output cell per entry of a date-ordered group.
// Nil entries in vals are null.
type windowFunc func(vals []*float64, size int) []any

// MovingAverage adds spec.Output holding, for each row, the mean of the
// non-null values over the preceding spec.Size rows of its group. The current
// row never contributes. A row with no preceding value gets null.
func MovingAverage(ctx context.Context, t *frame.Table, spec WindowSpec) (*frame.Table, error) {
	return applyWindow(ctx, t, spec, "moving average", trailingMean)
}

// Lag adds spec.Output holding the value spec.Size rows earlier in the same
// group's date-ordered sequence, or null when there is no such row. The offset
// counts rows, not calendar days.
func Lag(ctx context.Context, t *frame.Table, spec WindowSpec) (*frame.Table, error) {
	return applyWindow(ctx, t, spec, "lag", shift)
}

func trailingMean(vals []*float64, size int) []any {
	out := make([]any, len(vals))
	for i := range vals {
		var sum float64
		var n int
		for j := max(0, i-size); j < i; j++ {
			if vals[j] != nil {
				sum += *vals[j]
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

func shift(vals []*float64, size int) []any {
	out := make([]any, len(vals))
	for i := size; i < len(vals); i++ {
		if v := vals[i-size]; v != nil {
			out[i] = *v
		}
	}
	return out
}

func applyWindow(ctx context.Context, t *frame.Table, spec WindowSpec, what string, fn windowFunc) (*frame.Table, error) {
	if spec.Size < 1 {
		return nil, fmt.Errorf("%s %s: window size must be at least 1, got %d", what, spec.Output, spec.Size)
	}
	cols := append(append([]string(nil), spec.GroupBy...), spec.OrderBy, spec.Value)
	for _, c := range cols {
		if _, err := t.Index(c); err != nil {
			return nil, fmt.Errorf("%s %s: %w", what, spec.Output, err)
		}
	}
	if t.Has(spec.Output) {
		return nil, fmt.Errorf("%s: %w: table %s already has column %q", what, frame.ErrColumnConflict, t.Name(), spec.Output)
	}

	groups, err := partition(t, spec)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", what, spec.Output, err)
	}

	// Each group writes only to its own row positions, so no locking is needed.
	result := make([]any, t.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, spec.Workers))
	for _, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for k, v := range fn(grp.values, spec.Size) {
				result[grp.rows[k]] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := frame.New(t.Name(), append(t.Columns(), spec.Output)...)
	for i := 0; i < t.Len(); i++ {
		if err := out.Append(append(t.Row(i), result[i])...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type group struct {
	rows   []int
	values []*float64
}

// partition splits t into groups, each ordered by spec.OrderBy ascending.
// Ties keep their table order.
func partition(t *frame.Table, spec WindowSpec) ([]*group, error) {
	keyed, err := t.Select(spec.GroupBy...)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*group)
	var groups []*group
	for i := 0; i < t.Len(); i++ {
		k := frame.Key(keyed.Row(i)...)
		grp, ok := byKey[k]
		if !ok {
			grp = &group{}
			byKey[k] = grp
			groups = append(groups, grp)
		}
		grp.rows = append(grp.rows, i)
	}

	for _, grp := range groups {
		order := make([]any, len(grp.rows))
		for k, i := range grp.rows {
			order[k], _ = t.Value(i, spec.OrderBy)
		}
		idx := make([]int, len(grp.rows))
		for k := range idx {
			idx[k] = k
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return frame.Compare(order[idx[a]], order[idx[b]]) < 0
		})
		rows := make([]int, len(idx))
		values := make([]*float64, len(idx))
		for k, o := range idx {
			rows[k] = grp.rows[o]
			cell, _ := t.Value(rows[k], spec.Value)
			switch v := cell.(type) {
			case nil:
			case float64:
				values[k] = &v
			default:
				return nil, fmt.Errorf("column %s holds %T, want number", spec.Value, cell)
			}
		}
		grp.rows = rows
		grp.values = values
	}
	return groups, nil
}
