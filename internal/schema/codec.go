package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pgEdge/pgedge-salesfeat/internal/frame"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report CSV column names in validation errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("col"), ",")
		return name
	})
	return v
}

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate parses an ISO date (or timestamp) and truncates it to the day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

type field struct {
	name     string
	index    int
	optional bool
}

func fieldsOf(t reflect.Type, window int) []field {
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("col")
		if !ok || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		name = strings.ReplaceAll(name, "{w}", strconv.Itoa(window))
		fields = append(fields, field{name: name, index: i, optional: opts == "optional"})
	}
	return fields
}

// Decoder turns CSV records into T. Column positions are resolved once from
// the header.
type Decoder[T any] struct {
	table  string
	fields []field
	pos    []int
}

// NewDecoder maps header to the fields of T. Header names are matched after
// trimming spaces. A required column missing from header yields
// frame.ErrMissingColumn.
func NewDecoder[T any](table string, header []string) (*Decoder[T], error) {
	at := make(map[string]int, len(header))
	for i, h := range header {
		at[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	fields := fieldsOf(reflect.TypeFor[T](), 0)
	pos := make([]int, len(fields))
	for i, f := range fields {
		p, ok := at[f.name]
		if !ok {
			if !f.optional {
				return nil, fmt.Errorf("%s: %w: %q not in header %v", table, frame.ErrMissingColumn, f.name, header)
			}
			p = -1
		}
		pos[i] = p
	}
	return &Decoder[T]{table: table, fields: fields, pos: pos}, nil
}

// Decode parses and validates one record.
func (d *Decoder[T]) Decode(record []string) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	for i, f := range d.fields {
		p := d.pos[i]
		if p < 0 {
			continue
		}
		if p >= len(record) {
			return out, fmt.Errorf("%s: record has %d fields, column %s is at %d", d.table, len(record), f.name, p)
		}
		if err := setField(v.Field(f.index), record[p]); err != nil {
			return out, fmt.Errorf("%s: column %s: %w", d.table, f.name, err)
		}
	}
	if err := Validate(out); err != nil {
		return out, fmt.Errorf("%s: %w", d.table, err)
	}
	return out, nil
}

// Validate checks the validate tags of a record.
func Validate(v any) error {
	err := validate.Struct(v)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid record: %s", strings.Join(msgs, ", "))
	}
	return err
}

func setField(fv reflect.Value, raw string) error {
	raw = strings.TrimSpace(raw)
	if fv.Kind() == reflect.Pointer {
		if raw == "" {
			fv.SetZero()
			return nil
		}
		ptr := reflect.New(fv.Type().Elem())
		if err := setField(ptr.Elem(), raw); err != nil {
			return err
		}
		fv.Set(ptr)
		return nil
	}

	switch fv.Interface().(type) {
	case time.Time:
		if raw == "" {
			return nil
		}
		t, err := ParseDate(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Float64:
		if raw == "" {
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// Encoder renders T as CSV records. Nulls become empty strings.
type Encoder[T any] struct {
	fields []field
}

// NewEncoder creates an encoder whose {w} placeholders use window.
func NewEncoder[T any](window int) *Encoder[T] {
	return &Encoder[T]{fields: fieldsOf(reflect.TypeFor[T](), window)}
}

// Header returns the column names in field order.
func (e *Encoder[T]) Header() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.name
	}
	return names
}

// Encode renders one record.
func (e *Encoder[T]) Encode(rec T) []string {
	v := reflect.ValueOf(rec)
	out := make([]string, len(e.fields))
	for i, f := range e.fields {
		out[i] = formatField(v.Field(f.index))
	}
	return out
}

func formatField(fv reflect.Value) string {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}
	switch x := fv.Interface().(type) {
	case time.Time:
		return x.Format(DateLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	}
	return fmt.Sprint(fv.Interface())
}
