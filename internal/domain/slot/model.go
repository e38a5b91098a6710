package slot

import (
	"strings"
	"time"

	"studio/internal/domain/apperr"
)

// TimeLayout is the wire and storage format for slot start/end times.
const TimeLayout = "15:04"

// Slot is a scheduled, capacity-limited class on a calendar day.
// INVARIANT: within a tenant, no two active slots share (DayID, StartTime, EndTime).
type Slot struct {
	ID              string
	TenantID        string
	ModalityID      string
	InstructorID    string
	DayID           string
	StartTime       string // HH:MM
	EndTime         string // HH:MM
	Capacity        int
	ToleranceBefore int // minutes before start that check-in opens
	ToleranceAfter  int // minutes after start that check-in stays open
	Active          bool
	CreatedAt       time.Time
}

// Validate checks if the Slot has valid data.
// PRE: Slot struct is populated
// POST: Returns nil if valid, a validation *apperr.Error otherwise
func (s *Slot) Validate() error {
	if strings.TrimSpace(s.TenantID) == "" {
		return apperr.Validation("tenant ID cannot be empty")
	}
	if strings.TrimSpace(s.DayID) == "" {
		return apperr.Validation("day ID cannot be empty")
	}
	if strings.TrimSpace(s.ModalityID) == "" {
		return apperr.Validation("modality ID cannot be empty")
	}
	start, err := time.Parse(TimeLayout, s.StartTime)
	if err != nil {
		return apperr.Validation("start time %q must be HH:MM", s.StartTime)
	}
	end, err := time.Parse(TimeLayout, s.EndTime)
	if err != nil {
		return apperr.Validation("end time %q must be HH:MM", s.EndTime)
	}
	if !end.After(start) {
		return apperr.Validation("end time %s must be after start time %s", s.EndTime, s.StartTime)
	}
	if s.Capacity < 1 {
		return apperr.Validation("capacity must be at least 1")
	}
	if s.ToleranceBefore < 0 || s.ToleranceAfter < 0 {
		return apperr.Validation("check-in tolerances cannot be negative")
	}
	return nil
}

// Collides reports whether two slots occupy the same day and exact time range.
// Partially overlapping ranges do not collide.
func (s *Slot) Collides(other Slot) bool {
	return s.TenantID == other.TenantID &&
		s.DayID == other.DayID &&
		s.StartTime == other.StartTime &&
		s.EndTime == other.EndTime
}

// StartsAt combines the slot's start time with a day's midnight.
// PRE: StartTime is HH:MM; dayStart is midnight in the studio location
func (s *Slot) StartsAt(dayStart time.Time) (time.Time, error) {
	start, err := time.Parse(TimeLayout, s.StartTime)
	if err != nil {
		return time.Time{}, apperr.Validation("start time %q must be HH:MM", s.StartTime)
	}
	return time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(),
		start.Hour(), start.Minute(), 0, 0, dayStart.Location()), nil
}

// AdmissionWindow returns the inclusive interval during which check-in is allowed.
func (s *Slot) AdmissionWindow(startsAt time.Time) (opens, closes time.Time) {
	opens = startsAt.Add(-time.Duration(s.ToleranceBefore) * time.Minute)
	closes = startsAt.Add(time.Duration(s.ToleranceAfter) * time.Minute)
	return opens, closes
}

// CheckWindow returns a time-window error when now falls outside the admission window.
// PRE: startsAt is the slot's start instant
// POST: nil when opens <= now <= closes
func (s *Slot) CheckWindow(now, startsAt time.Time) error {
	opens, closes := s.AdmissionWindow(startsAt)
	if now.Before(opens) {
		return apperr.TooEarly(opens.Sub(now))
	}
	if now.After(closes) {
		return apperr.TooLate(now.Sub(closes))
	}
	return nil
}
