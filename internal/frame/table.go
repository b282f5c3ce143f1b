//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package frame implements the in-memory tables the feature pipeline works on:
// named columns of nullable cells with grouping, sorting and joining.
//
// A cell holds a string, a float64, a time.Time or nil. A nil cell is null.
package frame

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingColumn is returned when an operation references a column the
	// table does not have.
	ErrMissingColumn = errors.New("missing column")

	// ErrDataIntegrity is returned when a key expected to be unique repeats, or
	// a join would multiply rows.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrColumnConflict is returned when a join would produce two columns with
	// the same name.
	ErrColumnConflict = errors.New("column conflict")
)

// Table is a named, column-ordered table of nullable cells.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given columns.
func New(name string, columns ...string) *Table {
	t := &Table{
		name:    name,
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// Name returns the table name used in logs and errors.
func (t *Table) Name() string {
	return t.name
}

// WithName returns a shallow copy of t carrying a different name.
func (t *Table) WithName(name string) *Table {
	out := New(name, t.columns...)
	out.rows = t.rows
	return out
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of a column.
func (t *Table) Index(col string) (int, error) {
	i, ok := t.index[col]
	if !ok {
		return 0, fmt.Errorf("%w: %q not in table %s %v", ErrMissingColumn, col, t.name, t.columns)
	}
	return i, nil
}

func (t *Table) indexes(cols []string) ([]int, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	return idx, nil
}

// Append adds a row. The number of values must match the number of columns.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.name, len(values), len(t.columns))
	}
	for i, v := range values {
		switch v.(type) {
		case nil, string, float64, time.Time:
		default:
			return fmt.Errorf("table %s: column %s: unsupported cell type %T", t.name, t.columns[i], v)
		}
	}
	t.rows = append(t.rows, append([]any(nil), values...))
	return nil
}

// Value returns the cell at row i in the named column.
func (t *Table) Value(i int, col string) (any, error) {
	j, err := t.Index(col)
	if err != nil {
		return nil, err
	}
	return t.rows[i][j], nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Float returns the cell at row i as a float64. ok is false for null cells.
func (t *Table) Float(i int, col string) (v float64, ok bool, err error) {
	cell, err := t.Value(i, col)
	if err != nil {
		return 0, false, err
	}
	f, ok := cell.(float64)
	return f, ok, nil
}

// Rename returns a copy of the table with columns renamed according to mapping.
// Columns not in mapping keep their name.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for from := range mapping {
		if !t.Has(from) {
			return nil, fmt.Errorf("rename: %w: %q not in table %s", ErrMissingColumn, from, t.name)
		}
	}
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			cols[i] = to
		} else {
			cols[i] = c
		}
	}
	out := New(t.name, cols...)
	if len(out.index) != len(cols) {
		return nil, fmt.Errorf("rename %s: %w: duplicate column after rename %v", t.name, ErrColumnConflict, cols)
	}
	out.rows = t.rows
	return out, nil
}

// Select returns a copy of the table restricted to cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx, err := t.indexes(cols)
	if err != nil {
		return nil, err
	}
	out := New(t.name, cols...)
	out.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// SortBy returns a copy of the table stably sorted ascending by cols.
// Nulls sort after all non-null values.
func (t *Table) SortBy(cols ...string) (*Table, error) {
	idx, err := t.indexes(cols)
	if err != nil {
		return nil, err
	}
	out := New(t.name, t.columns...)
	out.rows = append([][]any(nil), t.rows...)
	sort.SliceStable(out.rows, func(a, b int) bool {
		return compareRows(out.rows[a], out.rows[b], idx) < 0
	})
	return out, nil
}

func compareRows(a, b []any, idx []int) int {
	for _, j := range idx {
		if c := Compare(a[j], b[j]); c != 0 {
			return c
		}
	}
	return 0
}

// Compare orders two cells. Nulls are greater than any value; cells of
// different types compare by type name so the order stays total.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

// Key encodes a tuple of cells the same way grouping and joining do.
func Key(cells ...any) string {
	idx := make([]int, len(cells))
	for i := range idx {
		idx[i] = i
	}
	return key(cells, idx)
}

// key encodes a tuple of cells into a map key. Nulls are encoded distinctly
// so that a null key forms its own group.
func key(row []any, idx []int) string {
	var b strings.Builder
	for _, j := range idx {
		switch v := row[j].(type) {
		case nil:
			b.WriteString("n|")
		case string:
			b.WriteString("s")
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
			b.WriteByte('|')
		case float64:
			b.WriteString("f")
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			b.WriteByte('|')
		case time.Time:
			b.WriteString("t")
			b.WriteString(strconv.FormatInt(v.UnixNano(), 10))
			b.WriteByte('|')
		}
	}
	return b.String()
}
