package frame

import "fmt"

// GroupSum returns one row per distinct tuple of keys with value summed across
// the rows sharing it. Null values do not contribute to the sum. Null key cells
// are kept and form their own group. Rows come out in first-appearance order.
func (t *Table) GroupSum(keys []string, value string) (*Table, error) {
	keyIdx, err := t.indexes(keys)
	if err != nil {
		return nil, fmt.Errorf("group %s by %v: %w", t.name, keys, err)
	}
	valIdx, err := t.Index(value)
	if err != nil {
		return nil, fmt.Errorf("group %s by %v: %w", t.name, keys, err)
	}

	cols := append(append([]string(nil), keys...), value)
	out := New(t.name, cols...)
	if len(out.index) != len(cols) {
		return nil, fmt.Errorf("group %s: %w: value column %q is also a key", t.name, ErrColumnConflict, value)
	}

	pos := make(map[string]int)
	sums := make([]float64, 0)
	for _, r := range t.rows {
		k := key(r, keyIdx)
		i, ok := pos[k]
		if !ok {
			i = len(out.rows)
			pos[k] = i
			row := make([]any, len(cols))
			for n, j := range keyIdx {
				row[n] = r[j]
			}
			out.rows = append(out.rows, row)
			sums = append(sums, 0)
		}
		switch v := r[valIdx].(type) {
		case nil:
		case float64:
			sums[i] += v
		default:
			return nil, fmt.Errorf("group %s: column %s holds %T, want number", t.name, value, v)
		}
	}
	for i, row := range out.rows {
		row[len(keys)] = sums[i]
	}
	return out, nil
}

// CheckUnique returns ErrDataIntegrity if any tuple of keys appears in more
// than one row.
func (t *Table) CheckUnique(keys []string) error {
	keyIdx, err := t.indexes(keys)
	if err != nil {
		return err
	}
	seen := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		k := key(r, keyIdx)
		if first, ok := seen[k]; ok {
			return fmt.Errorf("%w: table %s: key %v of row %d repeats row %d",
				ErrDataIntegrity, t.name, keyValues(r, keyIdx), i, first)
		}
		seen[k] = i
	}
	return nil
}

func keyValues(row []any, idx []int) []any {
	vals := make([]any, len(idx))
	for n, j := range idx {
		vals[n] = row[j]
	}
	return vals
}
