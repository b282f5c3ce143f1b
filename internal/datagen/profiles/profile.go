//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package profiles implements demand profiles that shape synthetic daily
// sales.
package profiles

import (
	"fmt"
	"sort"
	"time"
)

// Profile defines the interface for demand profiles.
type Profile interface {
	// Name returns the profile name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// DemandLevel returns the demand multiplier for a calendar day. 1.0 is
	// an ordinary day; values above 1.0 indicate busier days.
	DemandLevel(day time.Time) float64
}

var registry = make(map[string]func() Profile)

// Register adds a profile constructor to the registry.
func Register(name string, constructor func() Profile) {
	registry[name] = constructor
}

// Get retrieves a profile by name.
func Get(name string) (Profile, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", name)
	}
	return constructor(), nil
}

// List returns all registered profile names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("steady", NewSteady)
	Register("weekend-peak", NewWeekendPeak)
	Register("seasonal", NewSeasonal)
}
