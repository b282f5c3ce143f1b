//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package profiles

import (
	"math"
	"time"
)

// WeekendPeak simulates a high street shop.
// Monday - Thursday: 85% of an average day
// Friday: 110%
// Saturday: 140%
// Sunday: 120%
type WeekendPeak struct{}

// NewWeekendPeak creates a new WeekendPeak profile.
func NewWeekendPeak() Profile {
	return &WeekendPeak{}
}

func (p *WeekendPeak) Name() string {
	return "weekend-peak"
}

func (p *WeekendPeak) Description() string {
	return "Retail week (Friday ramp, Saturday peak)"
}

func (p *WeekendPeak) DemandLevel(day time.Time) float64 {
	return weekdayLevel(day.Weekday())
}

func weekdayLevel(d time.Weekday) float64 {
	switch d {
	case time.Friday:
		return 1.10
	case time.Saturday:
		return 1.40
	case time.Sunday:
		return 1.20
	default:
		return 0.85
	}
}

// Seasonal combines the retail week with a yearly cycle.
// Yearly: sinusoid peaking mid-December at +35%, trough mid-June at -35%
// Weekly: WeekendPeak levels
type Seasonal struct{}

// NewSeasonal creates a new Seasonal profile.
func NewSeasonal() Profile {
	return &Seasonal{}
}

func (p *Seasonal) Name() string {
	return "seasonal"
}

func (p *Seasonal) Description() string {
	return "Yearly cycle peaking before Christmas, with a retail week"
}

// peakDay is the day of year with the highest seasonal demand.
const peakDay = 350

func (p *Seasonal) DemandLevel(day time.Time) float64 {
	phase := 2 * math.Pi * float64(day.YearDay()-peakDay) / 365.25
	yearly := 1 + 0.35*math.Cos(phase)
	return yearly * weekdayLevel(day.Weekday())
}
