//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesfeat/internal/features"
	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2021, time.January, 8, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"iso date", "2021-01-08", false},
		{"padded", " 2021-01-08 ", false},
		{"timestamp", "2021-01-08 13:45:00", false},
		{"rfc3339", "2021-01-08T13:45:00Z", false},
		{"us format", "01/08/2021", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecoderSales(t *testing.T) {
	dec, err := NewDecoder[SalesRecord]("sales", []string{"quantity", "product", "date", "store"})
	require.NoError(t, err)

	rec, err := dec.Decode([]string{"12.5", "P1", "2021-02-03", "S9"})
	require.NoError(t, err)
	assert.Equal(t, SalesRecord{
		Date:      time.Date(2021, time.February, 3, 0, 0, 0, 0, time.UTC),
		StoreID:   "S9",
		ProductID: "P1",
		Quantity:  12.5,
	}, rec)
}

func TestDecoderMissingColumn(t *testing.T) {
	_, err := NewDecoder[SalesRecord]("sales", []string{"date", "store", "product"})
	require.ErrorIs(t, err, frame.ErrMissingColumn)
	assert.Contains(t, err.Error(), "quantity")
}

func TestDecoderOptionalColumns(t *testing.T) {
	dec, err := NewDecoder[Store]("store", []string{"id"})
	require.NoError(t, err)

	s, err := dec.Decode([]string{"S1"})
	require.NoError(t, err)
	assert.Equal(t, Store{ID: "S1"}, s)
}

func TestDecoderRejectsInvalidRecords(t *testing.T) {
	dec, err := NewDecoder[SalesRecord]("sales", []string{"date", "store", "product", "quantity"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		record []string
		errMsg string
	}{
		{"bad date", []string{"2021-13-01", "S1", "P1", "1"}, "invalid date"},
		{"bad number", []string{"2021-01-01", "S1", "P1", "lots"}, "invalid number"},
		{"missing store", []string{"2021-01-01", "", "P1", "1"}, "store failed required"},
		{"negative quantity", []string{"2021-01-01", "S1", "P1", "-3"}, "quantity failed gte"},
		{"short record", []string{"2021-01-01", "S1"}, "record has 2 fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.Decode(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEncoderFeatureRow(t *testing.T) {
	enc := NewEncoder[FeatureRow](7)
	assert.Equal(t, []string{
		"product_id", "store_id", "date", "sales_product", "MA7_P", "LAG7_P",
		"brand_name", "brand_id", "sales_brand", "MA7_B", "LAG7_B",
		"sales_store", "MA7_S", "LAG7_S",
	}, enc.Header())

	ma := 38.5
	brand := "B1"
	rec := enc.Encode(FeatureRow{
		ProductID:    "P1",
		StoreID:      "S1",
		Date:         time.Date(2021, time.January, 8, 0, 0, 0, 0, time.UTC),
		SalesProduct: 80,
		MAProduct:    &ma,
		BrandID:      &brand,
	})
	assert.Equal(t, []string{"P1", "S1", "2021-01-08", "80", "38.5", "", "", "B1", "", "", "", "", "", ""}, rec)
}

func TestFeatureRowsRoundTripThroughTable(t *testing.T) {
	cols := []string{
		features.ColProductID, features.ColStoreID, features.ColDate, features.ColSalesProduct,
		"MA7_P", "LAG7_P", features.ColBrandName, features.ColBrandID,
		features.ColSalesBrand, "MA7_B", "LAG7_B", features.ColSalesStore, "MA7_S", "LAG7_S",
	}
	d := time.Date(2021, time.January, 8, 0, 0, 0, 0, time.UTC)
	tbl := frame.New("features", cols...)
	require.NoError(t, tbl.Append("P1", "S1", d, 80.0, 40.0, 10.0, "Acme", nil, 90.0, nil, nil, 100.0, 50.0, 20.0))

	rows, err := FeatureRows(tbl, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "P1", r.ProductID)
	assert.Equal(t, d, r.Date)
	assert.Equal(t, 80.0, r.SalesProduct)
	assert.Equal(t, 40.0, *r.MAProduct)
	assert.Equal(t, "Acme", *r.BrandName)
	assert.Nil(t, r.BrandID)
	assert.Nil(t, r.MABrand)
	assert.Equal(t, 20.0, *r.LagStore)

	_, err = FeatureRows(tbl, 14)
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}

func TestWmapeRows(t *testing.T) {
	tbl := frame.New("wmape", features.ColProductID, features.ColStoreID, features.ColBrandID, features.WMAPEColumn)
	require.NoError(t, tbl.Append("P1", "S1", "B1", 0.25))
	require.NoError(t, tbl.Append("P2", "S1", nil, nil))

	rows, err := WmapeRows(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.25, *rows[0].WMAPE)
	assert.Nil(t, rows[1].BrandID)
	assert.Nil(t, rows[1].WMAPE)

	enc := NewEncoder[WmapeRow](7)
	assert.Equal(t, []string{"product_id", "store_id", "brand_id", "WMAPE"}, enc.Header())
	assert.Equal(t, []string{"P2", "S1", "", ""}, enc.Encode(rows[1]))
}

func TestProductTableEmptyBrandIsNull(t *testing.T) {
	dec, err := NewDecoder[Product]("product", []string{"id", "brand"})
	require.NoError(t, err)
	p, err := dec.Decode([]string{"P2", ""})
	require.NoError(t, err)

	tbl, err := ProductTable([]Product{{ID: "P1", BrandName: "Acme"}, p})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	v, err := tbl.Value(0, features.ColBrandName)
	require.NoError(t, err)
	assert.Equal(t, "Acme", v)
	v, err = tbl.Value(1, features.ColBrandName)
	require.NoError(t, err)
	assert.Nil(t, v)
}
