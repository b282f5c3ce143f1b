// Package datagen generates synthetic product, brand, store and sales tables
// for pgedge-salesfeat.
package datagen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/datagen/profiles"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// Writer receives the generated tables.
type Writer interface {
	WriteProducts(ctx context.Context, rows []schema.Product) error
	WriteBrands(ctx context.Context, rows []schema.Brand) error
	WriteStores(ctx context.Context, rows []schema.Store) error
	WriteSales(ctx context.Context, rows []schema.SalesRecord) error
}

// Config sizes a generated dataset.
type Config struct {
	Products  int
	Brands    int
	Stores    int
	Days      int
	StartDate time.Time

	// Seed makes output reproducible. Zero picks a random seed.
	Seed uint64

	// Profile names the demand profile shaping daily quantities.
	Profile string

	// UnmatchedRate is the share of products whose brand name is absent
	// from the brand table.
	UnmatchedRate float64

	// ProgressInterval is how often to log progress (in sales rows).
	ProgressInterval int64
}

// DefaultConfig returns the default dataset size. It covers the default run
// date range with a week of history before it.
func DefaultConfig() Config {
	return Config{
		Products:         50,
		Brands:           8,
		Stores:           10,
		Days:             150,
		StartDate:        time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		Profile:          "weekend-peak",
		UnmatchedRate:    0.05,
		ProgressInterval: 100000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Products < 1 || c.Brands < 1 || c.Stores < 1 || c.Days < 1 {
		return fmt.Errorf("products, brands, stores and days must all be at least 1")
	}
	if c.UnmatchedRate < 0 || c.UnmatchedRate > 1 {
		return fmt.Errorf("unmatched rate must be between 0 and 1, got %g", c.UnmatchedRate)
	}
	if c.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if _, err := profiles.Get(c.Profile); err != nil {
		return err
	}
	return nil
}

// Dataset is one generated set of input tables.
type Dataset struct {
	Brands   []schema.Brand
	Products []schema.Product
	Stores   []schema.Store
	Sales    []schema.SalesRecord
}

// Generator builds datasets.
type Generator struct {
	cfg     Config
	profile profiles.Profile
	faker   *Faker
	logger  zerolog.Logger
}

// NewGenerator validates cfg and creates a generator.
func NewGenerator(logger zerolog.Logger, cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	profile, err := profiles.Get(cfg.Profile)
	if err != nil {
		return nil, err
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}

	return &Generator{
		cfg:     cfg,
		profile: profile,
		faker:   NewFaker(cfg.Seed),
		logger:  logging.Component(logger, "datagen"),
	}, nil
}

// Generate builds every table.
func (g *Generator) Generate(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{}
	ds.Brands = g.brands()
	ds.Products = g.products(ds.Brands)
	ds.Stores = g.stores()

	sales, err := g.sales(ctx, ds.Products, ds.Stores)
	if err != nil {
		return nil, err
	}
	ds.Sales = sales

	g.logger.Info().
		Int("brands", len(ds.Brands)).
		Int("products", len(ds.Products)).
		Int("stores", len(ds.Stores)).
		Int("sales", len(ds.Sales)).
		Str("profile", g.profile.Name()).
		Msg("Generated dataset")
	return ds, nil
}

// Write sends ds to w, brands first.
func (ds *Dataset) Write(ctx context.Context, w Writer) error {
	if err := w.WriteBrands(ctx, ds.Brands); err != nil {
		return fmt.Errorf("failed to write brands: %w", err)
	}
	if err := w.WriteProducts(ctx, ds.Products); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}
	if err := w.WriteStores(ctx, ds.Stores); err != nil {
		return fmt.Errorf("failed to write stores: %w", err)
	}
	if err := w.WriteSales(ctx, ds.Sales); err != nil {
		return fmt.Errorf("failed to write sales: %w", err)
	}
	return nil
}

// brands returns brands with unique names.
func (g *Generator) brands() []schema.Brand {
	seen := make(map[string]bool, g.cfg.Brands)
	out := make([]schema.Brand, g.cfg.Brands)
	for i := range out {
		out[i] = schema.Brand{
			ID:   fmt.Sprintf("B%03d", i+1),
			Name: g.uniqueName(seen, g.faker.BrandName),
		}
	}
	return out
}

// products assigns each product a brand. Earlier brands carry more products.
// A share of products refer to a brand name missing from brands.
func (g *Generator) products(brands []schema.Brand) []schema.Product {
	weights := make([]int, len(brands))
	for i := range weights {
		weights[i] = len(brands) - i
	}
	known := make(map[string]bool, len(brands))
	for _, b := range brands {
		known[b.Name] = true
	}

	out := make([]schema.Product, g.cfg.Products)
	var unmatched int
	for i := range out {
		brand := brands[g.faker.WeightedIndex(weights)].Name
		if g.faker.Chance(g.cfg.UnmatchedRate) {
			brand = g.uniqueName(known, g.faker.BrandName)
			unmatched++
		}
		out[i] = schema.Product{ID: fmt.Sprintf("P%04d", i+1), BrandName: brand}
	}
	if unmatched > 0 {
		g.logger.Debug().Int("products", unmatched).Msg("Products with unmatched brand names")
	}
	return out
}

func (g *Generator) stores() []schema.Store {
	seen := make(map[string]bool, g.cfg.Stores)
	out := make([]schema.Store, g.cfg.Stores)
	for i := range out {
		out[i] = schema.Store{
			ID:   fmt.Sprintf("S%02d", i+1),
			Name: g.uniqueName(seen, g.faker.StoreName),
			City: g.faker.StoreCity(0.1),
		}
	}
	return out
}

// sales emits one row per product, store and day. Each product has a base
// demand and each store a size factor; the profile and noise shape each day.
func (g *Generator) sales(ctx context.Context, products []schema.Product, stores []schema.Store) ([]schema.SalesRecord, error) {
	total := int64(len(products) * len(stores) * g.cfg.Days)
	progress := NewProgressReporter(g.logger, "sales", total, g.cfg.ProgressInterval)

	storeFactor := make([]float64, len(stores))
	for i := range storeFactor {
		storeFactor[i] = g.faker.StoreFactor()
	}
	start := g.cfg.StartDate.UTC().Truncate(24 * time.Hour)
	levels := make([]float64, g.cfg.Days)
	for d := range levels {
		levels[d] = g.profile.DemandLevel(start.AddDate(0, 0, d))
	}

	out := make([]schema.SalesRecord, 0, total)
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := g.faker.BaseDemand()
		for si, s := range stores {
			for d := 0; d < g.cfg.Days; d++ {
				out = append(out, schema.SalesRecord{
					Date:      start.AddDate(0, 0, d),
					StoreID:   s.ID,
					ProductID: p.ID,
					Quantity:  g.faker.Units(base * storeFactor[si] * levels[d]),
				})
			}
		}
		progress.Update(int64(len(stores) * g.cfg.Days))
	}
	progress.Done()
	return out, nil
}

// uniqueName draws from next until the value is not in seen, then records it.
// After a few collisions a numeric suffix is appended.
func (g *Generator) uniqueName(seen map[string]bool, next func() string) string {
	name := next()
	for attempt := 2; seen[name]; attempt++ {
		if attempt > 5 {
			name = fmt.Sprintf("%s %d", next(), attempt)
		} else {
			name = next()
		}
	}
	seen[name] = true
	return name
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	logger           zerolog.Logger
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(logger zerolog.Logger, tableName string, totalRows int64, interval int64) *ProgressReporter {
	return &ProgressReporter{
		logger:           logger,
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: max(interval, 1),
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rowsInserted int64) {
	oldRow := p.currentRow
	p.currentRow += rowsInserted

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		p.logger.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Rows returns the number of rows reported so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	p.logger.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}
