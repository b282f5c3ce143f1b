//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
)

// ErrInvalidDateRange is returned when a range ends before it starts.
var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is an inclusive range of calendar days. It is immutable once
// created.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange parses two ISO dates into a range. min must not be after max.
func NewDateRange(minDate, maxDate string) (DateRange, error) {
	start, err := schema.ParseDate(minDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("min date: %w", err)
	}
	end, err := schema.ParseDate(maxDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("max date: %w", err)
	}
	return NewDateRangeFromTimes(start, end)
}

// NewDateRangeFromTimes builds a range from two instants truncated to UTC days.
func NewDateRangeFromTimes(start, end time.Time) (DateRange, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange,
			start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}
	return DateRange{start: start, end: end}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Start returns the first day.
func (dr DateRange) Start() time.Time {
	return dr.start
}

// End returns the last day.
func (dr DateRange) End() time.Time {
	return dr.end
}

// IsZero reports whether the range was never set.
func (dr DateRange) IsZero() bool {
	return dr.start.IsZero() && dr.end.IsZero()
}

// Contains reports whether t falls on a day within the range, bounds included.
func (dr DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(dr.start) && !d.After(dr.end)
}

// Days returns the number of days in the range.
func (dr DateRange) Days() int {
	return int(dr.end.Sub(dr.start).Hours()/24) + 1
}

// FilterSales keeps the records dated within dr, in input order.
func FilterSales(records []schema.SalesRecord, dr DateRange) []schema.SalesRecord {
	out := make([]schema.SalesRecord, 0, len(records))
	for _, r := range records {
		if dr.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}
