package schema

import (
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-salesfeat/internal/features"
	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
)

// SalesTable converts sales records into the table the product level starts
// from: product_id, store_id, date, sales_product.
func SalesTable(records []SalesRecord) (*frame.Table, error) {
	t := frame.New("sales",
		features.ColProductID, features.ColStoreID, features.ColDate, features.ColSalesProduct)
	for _, r := range records {
		if err := t.Append(r.ProductID, r.StoreID, r.Date, r.Quantity); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ProductTable converts products into product_id, brand_name. An empty brand
// name becomes a null cell.
func ProductTable(products []Product) (*frame.Table, error) {
	t := frame.New("product", features.ColProductID, features.ColBrandName)
	for _, p := range products {
		var brand any
		if p.BrandName != "" {
			brand = p.BrandName
		}
		if err := t.Append(p.ID, brand); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BrandTable converts brands into brand_id, brand_name.
func BrandTable(brands []Brand) (*frame.Table, error) {
	t := frame.New("brand", features.ColBrandID, features.ColBrandName)
	for _, b := range brands {
		if err := t.Append(b.ID, b.Name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FeatureRows reads the final feature table back into typed rows.
func FeatureRows(t *frame.Table, window int) ([]FeatureRow, error) {
	levels := features.Levels()
	r := newReader(t)
	cols := struct {
		productID, storeID, date, salesProduct, brandName, brandID, salesBrand, salesStore int
		ma, lag                                                                          [3]int
	}{
		productID:    r.col(features.ColProductID),
		storeID:      r.col(features.ColStoreID),
		date:         r.col(features.ColDate),
		salesProduct: r.col(features.ColSalesProduct),
		brandName:    r.col(features.ColBrandName),
		brandID:      r.col(features.ColBrandID),
		salesBrand:   r.col(features.ColSalesBrand),
		salesStore:   r.col(features.ColSalesStore),
	}
	for i, lvl := range levels {
		cols.ma[i] = r.col(lvl.MAColumn(window))
		cols.lag[i] = r.col(lvl.LagColumn(window))
	}
	if r.err != nil {
		return nil, fmt.Errorf("feature rows: %w", r.err)
	}

	out := make([]FeatureRow, t.Len())
	for i := range out {
		row := t.Row(i)
		fr := FeatureRow{
			ProductID:  str(row[cols.productID]),
			StoreID:    str(row[cols.storeID]),
			BrandName:  strPtr(row[cols.brandName]),
			BrandID:    strPtr(row[cols.brandID]),
			SalesBrand: floatPtr(row[cols.salesBrand]),
			SalesStore: floatPtr(row[cols.salesStore]),
			MAProduct:  floatPtr(row[cols.ma[0]]),
			LagProduct: floatPtr(row[cols.lag[0]]),
			MABrand:    floatPtr(row[cols.ma[1]]),
			LagBrand:   floatPtr(row[cols.lag[1]]),
			MAStore:    floatPtr(row[cols.ma[2]]),
			LagStore:   floatPtr(row[cols.lag[2]]),
		}
		if d, ok := row[cols.date].(time.Time); ok {
			fr.Date = d
		}
		if v, ok := row[cols.salesProduct].(float64); ok {
			fr.SalesProduct = v
		}
		out[i] = fr
	}
	return out, nil
}

// WmapeRows reads a WMAPE table into typed rows.
func WmapeRows(t *frame.Table) ([]WmapeRow, error) {
	r := newReader(t)
	productID := r.col(features.ColProductID)
	storeID := r.col(features.ColStoreID)
	brandID := r.col(features.ColBrandID)
	score := r.col(features.WMAPEColumn)
	if r.err != nil {
		return nil, fmt.Errorf("wmape rows: %w", r.err)
	}

	out := make([]WmapeRow, t.Len())
	for i := range out {
		row := t.Row(i)
		out[i] = WmapeRow{
			ProductID: str(row[productID]),
			StoreID:   str(row[storeID]),
			BrandID:   strPtr(row[brandID]),
			WMAPE:     floatPtr(row[score]),
		}
	}
	return out, nil
}

// reader resolves column positions and keeps the first lookup error.
type reader struct {
	t   *frame.Table
	err error
}

func newReader(t *frame.Table) *reader {
	return &reader{t: t}
}

func (r *reader) col(name string) int {
	i, err := r.t.Index(name)
	if err != nil && r.err == nil {
		r.err = err
	}
	return i
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func floatPtr(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
