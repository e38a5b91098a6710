package checkin

import (
	"errors"
	"time"
)

// CheckIn records a member's admission to a slot.
// INVARIANT: (UserID, SlotID) is unique. Rows are never updated.
type CheckIn struct {
	ID             string
	TenantID       string
	UserID         string
	SlotID         string
	CreatedByAdmin bool
	AdminID        string // set only when CreatedByAdmin
	CreatedAt      time.Time
}

// Validate checks if the CheckIn has valid data.
// PRE: CheckIn struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *CheckIn) Validate() error {
	if c.TenantID == "" {
		return errors.New("check-in must belong to a tenant")
	}
	if c.UserID == "" {
		return errors.New("check-in must be associated with a member")
	}
	if c.SlotID == "" {
		return errors.New("check-in must reference a class")
	}
	if c.CreatedAt.IsZero() {
		return errors.New("check-in time must be set")
	}
	if c.CreatedByAdmin && c.AdminID == "" {
		return errors.New("admin check-ins must record the admin")
	}
	if !c.CreatedByAdmin && c.AdminID != "" {
		return errors.New("self check-ins cannot carry an admin")
	}
	return nil
}
