package testutil

import (
	"time"

	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// Day returns the nth day of February 2021, the month fixtures are set in.
func Day(n int) time.Time {
	return time.Date(2021, time.February, n, 0, 0, 0, 0, time.UTC)
}

// SalesSeries returns one sale per consecutive day starting at Day(1).
func SalesSeries(product, store string, quantities ...float64) []schema.SalesRecord {
	out := make([]schema.SalesRecord, len(quantities))
	for i, q := range quantities {
		out[i] = schema.SalesRecord{Date: Day(i + 1), StoreID: store, ProductID: product, Quantity: q}
	}
	return out
}

// Tables holds the dimension tables shared by most fixtures: products P1 and
// P2 of brand Acme (B1) sold in store S1.
type Tables struct {
	Products []schema.Product
	Brands   []schema.Brand
	Stores   []schema.Store
}

// AcmeTables returns the shared dimension tables.
func AcmeTables() Tables {
	return Tables{
		Products: []schema.Product{{ID: "P1", BrandName: "Acme"}, {ID: "P2", BrandName: "Acme"}},
		Brands:   []schema.Brand{{ID: "B1", Name: "Acme"}},
		Stores:   []schema.Store{{ID: "S1"}},
	}
}
