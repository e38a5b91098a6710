package calendar

import (
	"strings"
	"time"

	"studio/internal/domain/apperr"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Day is an enabled calendar day for a tenant. Slots hang off days.
type Day struct {
	ID       string
	TenantID string
	Date     string // YYYY-MM-DD
	Active   bool
}

// Validate checks if the Day has valid data.
// PRE: Day struct is populated
// POST: Returns nil if valid, a validation *apperr.Error otherwise
func (d *Day) Validate() error {
	if strings.TrimSpace(d.TenantID) == "" {
		return apperr.Validation("tenant ID cannot be empty")
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return apperr.Validation("date %q must be in YYYY-MM-DD format", d.Date)
	}
	return nil
}

// Time returns midnight of the day in loc.
// PRE: Date has been validated
func (d *Day) Time(loc *time.Location) time.Time {
	t, _ := time.ParseInLocation(DateLayout, d.Date, loc)
	return t
}

// Weekday returns the day of week of Date.
func (d *Day) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Month returns the YYYY-MM month the day belongs to.
func (d *Day) Month() string {
	if len(d.Date) < 7 {
		return ""
	}
	return d.Date[:7]
}
