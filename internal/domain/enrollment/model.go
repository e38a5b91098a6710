package enrollment

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Status is the closed set of enrollment lifecycle states.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusPending, StatusExpired, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown enrollment status %q", s)
}

// IsOpen reports whether the status counts toward the one-per-modality rule.
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusPending
}

// priority ranks open statuses; higher wins.
func (s Status) priority() int {
	switch s {
	case StatusActive:
		return 2
	case StatusPending:
		return 1
	}
	return 0
}

// Enrollment is a member's subscription to a plan within a modality.
type Enrollment struct {
	ID             string
	TenantID       string
	UserID         string
	PlanID         string
	ModalityID     string // derived from the plan
	Status         Status
	EnrollmentDate time.Time
	CreatedAt      time.Time
	HasPayment     bool
}

// Validate checks if the Enrollment has valid data.
// PRE: Enrollment struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Enrollment) Validate() error {
	if e.TenantID == "" || e.UserID == "" || e.PlanID == "" {
		return errors.New("enrollment requires tenant, user and plan")
	}
	if _, err := ParseStatus(string(e.Status)); err != nil {
		return err
	}
	if e.EnrollmentDate.IsZero() {
		return errors.New("enrollment date must be set")
	}
	return nil
}

// Cancel transitions an open enrollment to cancelled.
// PRE: Status is active or pending
// POST: Status is cancelled
func (e *Enrollment) Cancel() error {
	if !e.Status.IsOpen() {
		return fmt.Errorf("cannot cancel enrollment %s in status %s", e.ID, e.Status)
	}
	e.Status = StatusCancelled
	return nil
}

// GroupKey identifies the (user, modality) bucket an enrollment reconciles within.
type GroupKey struct {
	UserID     string
	ModalityID string
}

// Key returns the enrollment's reconciliation group.
func (e *Enrollment) Key() GroupKey {
	return GroupKey{UserID: e.UserID, ModalityID: e.ModalityID}
}

// Preferred reports whether a should be kept over b:
// paid first, then later enrollment date, then later creation, then active over pending.
// Ties fall back to ID so the order is total.
func Preferred(a, b Enrollment) bool {
	if a.HasPayment != b.HasPayment {
		return a.HasPayment
	}
	if !a.EnrollmentDate.Equal(b.EnrollmentDate) {
		return a.EnrollmentDate.After(b.EnrollmentDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if pa, pb := a.Status.priority(), b.Status.priority(); pa != pb {
		return pa > pb
	}
	return a.ID < b.ID
}

// SortByPreference orders enrollments most-preferred first, in place.
func SortByPreference(es []Enrollment) {
	sort.SliceStable(es, func(i, j int) bool { return Preferred(es[i], es[j]) })
}

// Partition splits one group into the enrollment to keep and the ones to cancel.
// PRE: len(group) > 0
func Partition(group []Enrollment) (keep Enrollment, cancel []Enrollment) {
	sorted := make([]Enrollment, len(group))
	copy(sorted, group)
	SortByPreference(sorted)
	return sorted[0], sorted[1:]
}
