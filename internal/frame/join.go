package frame

import "fmt"

// LeftJoin keeps every row of left, in order, and appends the non-key columns
// of right where the on columns match. Unmatched rows get nulls. right must be
// unique on the join key, otherwise the join would multiply rows and
// ErrDataIntegrity is returned. Null key cells match null key cells.
func LeftJoin(left, right *Table, on []string) (*Table, error) {
	leftIdx, err := left.indexes(on)
	if err != nil {
		return nil, fmt.Errorf("join %s with %s on %v: %w", left.name, right.name, on, err)
	}
	rightIdx, err := right.indexes(on)
	if err != nil {
		return nil, fmt.Errorf("join %s with %s on %v: %w", left.name, right.name, on, err)
	}

	isKey := make(map[int]bool, len(rightIdx))
	for _, j := range rightIdx {
		isKey[j] = true
	}
	var extra []int
	cols := left.Columns()
	for j, c := range right.columns {
		if isKey[j] {
			continue
		}
		if left.Has(c) {
			return nil, fmt.Errorf("join %s with %s: %w: both have column %q", left.name, right.name, ErrColumnConflict, c)
		}
		extra = append(extra, j)
		cols = append(cols, c)
	}

	lookup := make(map[string][]any, len(right.rows))
	for _, r := range right.rows {
		k := key(r, rightIdx)
		if _, dup := lookup[k]; dup {
			return nil, fmt.Errorf("join %s with %s: %w: right key %v is not unique",
				left.name, right.name, ErrDataIntegrity, keyValues(r, rightIdx))
		}
		lookup[k] = r
	}

	out := New(left.name, cols...)
	out.rows = make([][]any, len(left.rows))
	for i, r := range left.rows {
		row := make([]any, len(cols))
		copy(row, r)
		if m, ok := lookup[key(r, leftIdx)]; ok {
			for n, j := range extra {
				row[len(r)+n] = m[j]
			}
		}
		out.rows[i] = row
	}
	return out, nil
}
