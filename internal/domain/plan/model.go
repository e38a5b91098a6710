package plan

import (
	"math"
	"strings"
	"time"

	"studio/internal/domain/apperr"
)

// Plan is a priced membership offering within a modality.
type Plan struct {
	ID           string
	TenantID     string
	ModalityID   string
	Name         string
	Value        float64
	DurationDays int
}

// Validate checks if the Plan has valid data.
// PRE: Plan struct is populated
// POST: Returns nil if valid, a validation *apperr.Error otherwise
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.TenantID) == "" {
		return apperr.Validation("plan tenant cannot be empty")
	}
	if strings.TrimSpace(p.ModalityID) == "" {
		return apperr.Validation("plan modality cannot be empty")
	}
	if p.Value < 0 {
		return apperr.Validation("plan value cannot be negative")
	}
	if p.DurationDays <= 0 {
		return apperr.Validation("plan %s duration must be positive", p.ID)
	}
	return nil
}

// DailyRate returns the plan value spread over its duration.
// PRE: DurationDays > 0
func (p *Plan) DailyRate() float64 {
	return p.Value / float64(p.DurationDays)
}

// Direction classifies a plan change.
type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	DirectionEqual     Direction = "equal"
)

// Proration is the charge or credit owed for switching plans mid-cycle.
type Proration struct {
	Delta         float64 // signed, rounded to cents
	Direction     Direction
	Amount        float64 // |Delta|: charge on upgrade, credit on downgrade
	RemainingDays int
}

// RemainingDays returns whole calendar days from today until due, floored at zero.
func RemainingDays(today, due time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Prorate computes the adjustment for moving from prev to next with remainingDays left.
// PRE: both plans valid; remainingDays >= 0
// POST: Delta = round((next.daily - prev.daily) * remainingDays, 2)
func Prorate(prev, next Plan, remainingDays int) (Proration, error) {
	if err := prev.Validate(); err != nil {
		return Proration{}, err
	}
	if err := next.Validate(); err != nil {
		return Proration{}, err
	}
	if remainingDays < 0 {
		remainingDays = 0
	}

	delta := roundCents((next.DailyRate() - prev.DailyRate()) * float64(remainingDays))
	p := Proration{Delta: delta, RemainingDays: remainingDays}
	switch {
	case delta > 0:
		p.Direction = DirectionUpgrade
		p.Amount = delta
	case delta < 0:
		p.Direction = DirectionDowngrade
		p.Amount = -delta
	default:
		p.Delta = 0 // normalise -0
		p.Direction = DirectionEqual
	}
	return p, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
