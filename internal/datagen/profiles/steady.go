package profiles

import "time"

// Steady keeps demand flat every day.
type Steady struct{}

// NewSteady creates a new Steady profile.
func NewSteady() Profile {
	return &Steady{}
}

func (p *Steady) Name() string {
	return "steady"
}

func (p *Steady) Description() string {
	return "Flat demand, no weekly or yearly pattern"
}

func (p *Steady) DemandLevel(time.Time) float64 {
	return 1.0
}
