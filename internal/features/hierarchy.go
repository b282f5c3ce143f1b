package features

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
)

// Column names shared by the pipeline tables.
const (
	ColDate         = "date"
	ColProductID    = "product_id"
	ColStoreID      = "store_id"
	ColBrandID      = "brand_id"
	ColBrandName    = "brand_name"
	ColSalesProduct = "sales_product"
	ColSalesBrand   = "sales_brand"
	ColSalesStore   = "sales_store"

	ColMA  = "MA"
	ColLag = "LAG"

	SuffixProduct = "_P"
	SuffixBrand   = "_B"
	SuffixStore   = "_S"
)

// DefaultWindow is the window length used for every level.
const DefaultWindow = 7

// Level describes one granularity of the hierarchy.
type Level struct {
	// Name identifies the level in logs and errors.
	Name string

	// Keys are the entity columns; the date column is added when grouping.
	Keys []string

	// Sales is the name the summed sales column takes at this level.
	Sales string

	// Suffix is appended to the feature column names (MA7_P, LAG7_B, ...).
	Suffix string
}

// Levels returns the hierarchy from finest to coarsest.
func Levels() []Level {
	return []Level{
		{Name: "product-store", Keys: []string{ColProductID, ColStoreID}, Sales: ColSalesProduct, Suffix: SuffixProduct},
		{Name: "brand-store", Keys: []string{ColBrandID, ColStoreID}, Sales: ColSalesBrand, Suffix: SuffixBrand},
		{Name: "store", Keys: []string{ColStoreID}, Sales: ColSalesStore, Suffix: SuffixStore},
	}
}

// MAColumn returns the moving average column name for a level and window.
func (l Level) MAColumn(window int) string {
	return fmt.Sprintf("%s%d%s", ColMA, window, l.Suffix)
}

// LagColumn returns the lag column name for a level and window.
func (l Level) LagColumn(window int) string {
	return fmt.Sprintf("%s%d%s", ColLag, window, l.Suffix)
}

// Builder derives the three hierarchy levels of features from sales.
type Builder struct {
	logger  zerolog.Logger
	window  int
	workers int
}

// NewBuilder creates a Builder. window is the MA/LAG length in rows.
func NewBuilder(logger zerolog.Logger, window, workers int) *Builder {
	if window < 1 {
		window = DefaultWindow
	}
	return &Builder{
		logger:  logging.Component(logger, "hierarchy"),
		window:  window,
		workers: workers,
	}
}

// Build returns one row per (product_id, store_id, date) with the product,
// brand and store level features attached.
//
// sales needs product_id, store_id, date and sales_product; products needs
// product_id and brand_name; brands needs brand_id and brand_name.
func (b *Builder) Build(ctx context.Context, sales, products, brands *frame.Table) (*frame.Table, error) {
	levels := Levels()
	product, brand, store := levels[0], levels[1], levels[2]

	// Product-store level straight from sales.
	rows, err := b.levelFeatures(ctx, sales, product, ColSalesProduct)
	if err != nil {
		return nil, err
	}

	rows, err = b.attachBrand(rows, products, brands)
	if err != nil {
		return nil, err
	}

	// Coarser levels are summed from the brand-joined product rows.
	for _, lvl := range []Level{brand, store} {
		feats, err := b.levelFeatures(ctx, rows, lvl, ColSalesProduct)
		if err != nil {
			return nil, err
		}
		on := append(append([]string(nil), lvl.Keys...), ColDate)
		joined, err := frame.LeftJoin(rows, feats, on)
		if err != nil {
			return nil, fmt.Errorf("level %s: join back: %w", lvl.Name, err)
		}
		if joined.Len() != rows.Len() {
			return nil, fmt.Errorf("level %s: %w: join back changed row count from %d to %d",
				lvl.Name, frame.ErrDataIntegrity, rows.Len(), joined.Len())
		}
		rows = joined
	}
	return rows, nil
}

// levelFeatures sums from into one row per level key and date, then adds the
// moving average and lag columns.
func (b *Builder) levelFeatures(ctx context.Context, from *frame.Table, lvl Level, value string) (*frame.Table, error) {
	keys := append(append([]string(nil), lvl.Keys...), ColDate)

	agg, err := from.GroupSum(keys, value)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	if value != lvl.Sales {
		agg, err = agg.Rename(map[string]string{value: lvl.Sales})
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
		}
	}
	agg = agg.WithName(lvl.Name)
	if err := agg.CheckUnique(keys); err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	agg, err = agg.SortBy(keys...)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}

	spec := WindowSpec{
		GroupBy: lvl.Keys,
		OrderBy: ColDate,
		Value:   lvl.Sales,
		Size:    b.window,
		Workers: b.workers,
	}
	spec.Output = lvl.MAColumn(b.window)
	agg, err = MovingAverage(ctx, agg, spec)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	spec.Output = lvl.LagColumn(b.window)
	agg, err = Lag(ctx, agg, spec)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}

	b.logger.Debug().
		Str("level", lvl.Name).
		Strs("keys", keys).
		Int("rows", agg.Len()).
		Int("window", b.window).
		Msg("Computed level features")
	return agg, nil
}

// attachBrand adds brand_name then brand_id to rows via products and brands.
// Rows whose brand name has no match keep a null brand_id and are counted.
func (b *Builder) attachBrand(rows, products, brands *frame.Table) (*frame.Table, error) {
	prod, err := products.Select(ColProductID, ColBrandName)
	if err != nil {
		return nil, fmt.Errorf("brand enrichment: %w", err)
	}
	if err := prod.CheckUnique([]string{ColProductID}); err != nil {
		return nil, fmt.Errorf("brand enrichment: %w", err)
	}
	brnd, err := brands.Select(ColBrandID, ColBrandName)
	if err != nil {
		return nil, fmt.Errorf("brand enrichment: %w", err)
	}
	if err := brnd.CheckUnique([]string{ColBrandName}); err != nil {
		return nil, fmt.Errorf("brand enrichment: brand names must be unique: %w", err)
	}

	out, err := frame.LeftJoin(rows, prod, []string{ColProductID})
	if err != nil {
		return nil, fmt.Errorf("brand enrichment: %w", err)
	}
	out, err = frame.LeftJoin(out, brnd, []string{ColBrandName})
	if err != nil {
		return nil, fmt.Errorf("brand enrichment: %w", err)
	}

	var unmatched int
	for i := 0; i < out.Len(); i++ {
		if v, _ := out.Value(i, ColBrandID); v == nil {
			unmatched++
		}
	}
	if unmatched > 0 {
		b.logger.Warn().
			Int("rows", unmatched).
			Msg("Rows without a matching brand keep a null brand_id")
	}
	return out, nil
}
