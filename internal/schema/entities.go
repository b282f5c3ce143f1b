//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema declares the input and output records of the pipeline.
//
// Each entity carries three tags: col is the CSV header, db is the PostgreSQL
// column and validate holds the go-playground/validator rules checked when a
// record is ingested. A col tag may contain {w}, replaced by the window length
// when headers are rendered. The ",optional" col option marks a column that may
// be absent from an input file.
package schema

import "time"

// DateLayout is the ISO calendar date format used for input and output.
const DateLayout = "2006-01-02"

// SalesRecord is one raw sale as loaded from the sales table.
type SalesRecord struct {
	Date      time.Time `col:"date" db:"date" validate:"required"`
	StoreID   string    `col:"store" db:"store_id" validate:"required"`
	ProductID string    `col:"product" db:"product_id" validate:"required"`
	Quantity  float64   `col:"quantity" db:"quantity" validate:"gte=0"`
}

// Product links a product to its brand by brand name. An empty BrandName is
// null and leaves the product without a brand.
type Product struct {
	ID        string `col:"id" db:"id" validate:"required"`
	BrandName string `col:"brand" db:"brand"`
}

// Brand names a brand. Name is the join key products refer to.
type Brand struct {
	ID   string `col:"id" db:"id" validate:"required"`
	Name string `col:"name" db:"name" validate:"required"`
}

// Store describes a store. Only ID is used by the pipeline.
type Store struct {
	ID   string `col:"id" db:"id" validate:"required"`
	Name string `col:"name,optional" db:"name"`
	City string `col:"city,optional" db:"city"`
}

// FeatureRow is one denormalized output row per product, store and date.
// Pointer fields are null at sequence boundaries or when a brand is unmatched.
type FeatureRow struct {
	ProductID    string    `col:"product_id" db:"product_id"`
	StoreID      string    `col:"store_id" db:"store_id"`
	Date         time.Time `col:"date" db:"date"`
	SalesProduct float64   `col:"sales_product" db:"sales_product"`
	MAProduct    *float64  `col:"MA{w}_P" db:"ma_p"`
	LagProduct   *float64  `col:"LAG{w}_P" db:"lag_p"`
	BrandName    *string   `col:"brand_name" db:"brand_name"`
	BrandID      *string   `col:"brand_id" db:"brand_id"`
	SalesBrand   *float64  `col:"sales_brand" db:"sales_brand"`
	MABrand      *float64  `col:"MA{w}_B" db:"ma_b"`
	LagBrand     *float64  `col:"LAG{w}_B" db:"lag_b"`
	SalesStore   *float64  `col:"sales_store" db:"sales_store"`
	MAStore      *float64  `col:"MA{w}_S" db:"ma_s"`
	LagStore     *float64  `col:"LAG{w}_S" db:"lag_s"`
}

// WmapeRow is the forecast error of one product, store and brand group.
// WMAPE is null when the group's actual sales sum to zero.
type WmapeRow struct {
	ProductID string   `col:"product_id" db:"product_id"`
	StoreID   string   `col:"store_id" db:"store_id"`
	BrandID   *string  `col:"brand_id" db:"brand_id"`
	WMAPE     *float64 `col:"WMAPE" db:"wmape"`
}
