//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Products = 6
	cfg.Brands = 3
	cfg.Stores = 2
	cfg.Days = 10
	cfg.Seed = 42
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"default", func(*Config) {}, false},
		{"no products", func(c *Config) { c.Products = 0 }, true},
		{"no days", func(c *Config) { c.Days = 0 }, true},
		{"negative rate", func(c *Config) { c.UnmatchedRate = -0.1 }, true},
		{"rate above one", func(c *Config) { c.UnmatchedRate = 1.5 }, true},
		{"unknown profile", func(c *Config) { c.Profile = "lunar" }, true},
		{"no start date", func(c *Config) { c.StartDate = time.Time{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := smallConfig()
	cfg.UnmatchedRate = 0
	g, err := NewGenerator(zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	ds, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(ds.Brands) != 3 || len(ds.Products) != 6 || len(ds.Stores) != 2 {
		t.Fatalf("unexpected sizes: %d brands, %d products, %d stores",
			len(ds.Brands), len(ds.Products), len(ds.Stores))
	}
	if want := 6 * 2 * 10; len(ds.Sales) != want {
		t.Errorf("len(Sales) = %d, want %d", len(ds.Sales), want)
	}

	names := make(map[string]bool)
	for _, b := range ds.Brands {
		if names[b.Name] {
			t.Errorf("duplicate brand name %q", b.Name)
		}
		names[b.Name] = true
	}
	for _, p := range ds.Products {
		if !names[p.BrandName] {
			t.Errorf("product %s has unknown brand %q with unmatched rate 0", p.ID, p.BrandName)
		}
	}

	first, last := ds.Sales[0].Date, ds.Sales[9].Date
	if !first.Equal(cfg.StartDate) {
		t.Errorf("first sale on %s, want %s", first, cfg.StartDate)
	}
	if got := last.Sub(first); got != 9*24*time.Hour {
		t.Errorf("series spans %s, want 9 days", got)
	}
	for _, s := range ds.Sales {
		if err := schema.Validate(s); err != nil {
			t.Fatalf("generated invalid sale %+v: %v", s, err)
		}
	}
}

func TestGenerateUnmatchedBrands(t *testing.T) {
	cfg := smallConfig()
	cfg.Products = 20
	cfg.UnmatchedRate = 1.0
	g, err := NewGenerator(zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	ds, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	names := make(map[string]bool)
	for _, b := range ds.Brands {
		names[b.Name] = true
	}
	for _, p := range ds.Products {
		if names[p.BrandName] {
			t.Errorf("product %s matched brand %q with unmatched rate 1", p.ID, p.BrandName)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	gen := func() *Dataset {
		g, err := NewGenerator(zerolog.Nop(), smallConfig())
		if err != nil {
			t.Fatalf("NewGenerator failed: %v", err)
		}
		ds, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		return ds
	}

	a, b := gen(), gen()
	if a.Brands[0] != b.Brands[0] || a.Products[5] != b.Products[5] || a.Stores[1] != b.Stores[1] {
		t.Error("same seed produced different dimension tables")
	}
	for i := range a.Sales {
		if a.Sales[i] != b.Sales[i] {
			t.Fatalf("sale %d differs: %+v != %+v", i, a.Sales[i], b.Sales[i])
		}
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	g, err := NewGenerator(zerolog.Nop(), smallConfig())
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Generate(ctx); err == nil {
		t.Error("Expected cancellation error, got nil")
	}
}

type recordingWriter struct {
	order []string
}

func (w *recordingWriter) WriteProducts(context.Context, []schema.Product) error {
	w.order = append(w.order, "product")
	return nil
}

func (w *recordingWriter) WriteBrands(context.Context, []schema.Brand) error {
	w.order = append(w.order, "brand")
	return nil
}

func (w *recordingWriter) WriteStores(context.Context, []schema.Store) error {
	w.order = append(w.order, "store")
	return nil
}

func (w *recordingWriter) WriteSales(context.Context, []schema.SalesRecord) error {
	w.order = append(w.order, "sales")
	return nil
}

func TestDatasetWrite(t *testing.T) {
	w := &recordingWriter{}
	if err := (&Dataset{}).Write(context.Background(), w); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := []string{"brand", "product", "store", "sales"}
	for i := range want {
		if i >= len(w.order) || w.order[i] != want[i] {
			t.Fatalf("write order = %v, want %v", w.order, want)
		}
	}
}

func TestProgressReporter(t *testing.T) {
	p := NewProgressReporter(zerolog.Nop(), "sales", 100, 10)
	for i := 0; i < 5; i++ {
		p.Update(7)
	}
	if p.Rows() != 35 {
		t.Errorf("Rows() = %d, want 35", p.Rows())
	}
	p.Done()
}
