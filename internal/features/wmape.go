package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
)

// WMAPEColumn is the column WMAPE writes its score to.
const WMAPEColumn = "WMAPE"

// ScoreSpec names the columns WMAPE reads.
type ScoreSpec struct {
	Forecast string
	Actual   string
	GroupBy  []string
}

// DefaultScoreSpec scores the product-level moving average as a naive forecast
// of product sales.
func DefaultScoreSpec(window int) ScoreSpec {
	return ScoreSpec{
		Forecast: Levels()[0].MAColumn(window),
		Actual:   ColSalesProduct,
		GroupBy:  []string{ColProductID, ColStoreID, ColBrandID},
	}
}

// WMAPE computes, per group, the sum of |actual - forecast| divided by the sum
// of actual. Rows where either value is null are left out. A group whose
// actual sum is zero scores null. Groups with no usable rows are omitted.
func WMAPE(t *frame.Table, spec ScoreSpec) (*frame.Table, error) {
	keyed, err := t.Select(spec.GroupBy...)
	if err != nil {
		return nil, fmt.Errorf("wmape: %w", err)
	}
	for _, c := range []string{spec.Forecast, spec.Actual} {
		if _, err := t.Index(c); err != nil {
			return nil, fmt.Errorf("wmape: %w", err)
		}
	}

	type acc struct {
		keys     []any
		absError float64
		actual   float64
	}
	byKey := make(map[string]*acc)
	var order []*acc
	for i := 0; i < t.Len(); i++ {
		actual, okA, _ := t.Float(i, spec.Actual)
		forecast, okF, _ := t.Float(i, spec.Forecast)
		if !okA || !okF {
			continue
		}
		keys := keyed.Row(i)
		k := frame.Key(keys...)
		a, ok := byKey[k]
		if !ok {
			a = &acc{keys: keys}
			byKey[k] = a
			order = append(order, a)
		}
		a.absError += math.Abs(actual - forecast)
		a.actual += actual
	}

	out := frame.New(t.Name()+"_wmape", append(append([]string(nil), spec.GroupBy...), WMAPEColumn)...)
	for _, a := range order {
		var score any
		if a.actual != 0 {
			score = a.absError / a.actual
		}
		if err := out.Append(append(a.keys, score)...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TopN returns the n rows with the highest values in col, highest first.
// Nulls sort last; ties keep their input order.
func TopN(t *frame.Table, col string, n int) (*frame.Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("top n must be at least 1, got %d", n)
	}
	j, err := t.Index(col)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}

	rows := make([][]any, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	sort.SliceStable(rows, func(a, b int) bool {
		va, vb := rows[a][j], rows[b][j]
		switch {
		case va == nil:
			return false
		case vb == nil:
			return true
		}
		return frame.Compare(va, vb) > 0
	})

	out := frame.New(t.Name(), t.Columns()...)
	for _, r := range rows[:min(n, len(rows))] {
		if err := out.Append(r...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
