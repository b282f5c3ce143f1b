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
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

var storeSuffixes = []string{"Central", "Retail Park", "High Street", "Outlet", "Market"}

// Faker draws the retail values the generator needs from gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a Faker. A zero seed picks one from the clock; any other
// seed makes the draws reproducible.
func NewFaker(seed uint64) *Faker {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Faker{faker: gofakeit.New(seed)}
}

// BrandName returns a company name to use as a brand.
func (f *Faker) BrandName() string {
	return f.faker.Company()
}

// StoreName returns a store name such as "Oak Street Outlet".
func (f *Faker) StoreName() string {
	return fmt.Sprintf("%s %s", f.faker.StreetName(), storeSuffixes[f.faker.IntRange(0, len(storeSuffixes)-1)])
}

// StoreCity returns a city, or "" with probability missing.
func (f *Faker) StoreCity(missing float64) string {
	city := f.faker.City()
	if f.Chance(missing) {
		return ""
	}
	return city
}

// BaseDemand returns a product's mean daily units before store and profile
// factors apply.
func (f *Faker) BaseDemand() float64 {
	return f.faker.Float64Range(2, 40)
}

// StoreFactor scales demand by store size.
func (f *Faker) StoreFactor() float64 {
	return f.faker.Float64Range(0.5, 1.5)
}

// Units draws a whole, non-negative quantity around mean with +/-30% noise.
func (f *Faker) Units(mean float64) float64 {
	return max(0, math.Round(mean*f.faker.Float64Range(0.7, 1.3)))
}

// Chance reports true with probability p.
func (f *Faker) Chance(p float64) bool {
	return p > 0 && f.faker.Float64() < p
}

// WeightedIndex picks an index into weights with probability proportional to
// its weight. It returns -1 when no weight is positive.
func (f *Faker) WeightedIndex(weights []int) int {
	total := 0
	for _, w := range weights {
		total += max(w, 0)
	}
	if total == 0 {
		return -1
	}
	r := f.faker.IntRange(1, total)
	for i, w := range weights {
		r -= max(w, 0)
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}
