package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	checkinStore "studio/internal/adapters/storage/checkin"
	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/checkin"
	"studio/internal/domain/slot"
)

// SlotLookupStore defines the slot store interface needed for admission.
type SlotLookupStore interface {
	GetByID(ctx context.Context, tenantID, id string) (slot.Slot, error)
}

// CheckInStore defines the check-in store interface needed for admission.
type CheckInStore interface {
	Admit(ctx context.Context, value checkin.CheckIn, capacity int) error
	CountBySlot(ctx context.Context, slotID string) (int, error)
	Exists(ctx context.Context, userID, slotID string) (bool, error)
}

// CheckInMemberInput carries input for the admission controller.
// AdminID is set when an administrator checks a member in on their behalf.
type CheckInMemberInput struct {
	TenantID string
	UserID   string
	SlotID   string
	AdminID  string
}

// CheckInMemberDeps holds dependencies for CheckInMember.
type CheckInMemberDeps struct {
	SlotStore    SlotLookupStore
	DayStore     DayLookupStore
	CheckInStore CheckInStore
	Location     *time.Location // studio timezone; nil means UTC
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCheckInMember admits a member to a class slot.
// The decision is recomputed from live state on every call: an existing check-in for
// the pair is reported as duplicate first, then the admission window is checked, then
// occupancy. The final insert re-checks capacity and pair uniqueness atomically.
// PRE: TenantID, UserID and SlotID are non-empty
// POST: CheckIn persisted, or NotFound / TimeWindow / CapacityExceeded / DuplicateCheckIn
// INVARIANT: count(check-ins of slot) <= slot.Capacity; (user, slot) is unique
func ExecuteCheckInMember(ctx context.Context, input CheckInMemberInput, deps CheckInMemberDeps) (checkin.CheckIn, error) {
	if input.UserID == "" || input.SlotID == "" {
		return checkin.CheckIn{}, apperr.Validation("user ID and slot ID are required")
	}

	s, err := deps.SlotStore.GetByID(ctx, input.TenantID, input.SlotID)
	if err != nil {
		return checkin.CheckIn{}, err
	}
	if !s.Active {
		return checkin.CheckIn{}, apperr.NotFound("slot %s not found", input.SlotID)
	}
	day, err := deps.DayStore.GetByID(ctx, input.TenantID, s.DayID)
	if err != nil {
		return checkin.CheckIn{}, err
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	startsAt, err := s.StartsAt(day.Time(loc))
	if err != nil {
		return checkin.CheckIn{}, err
	}

	exists, err := deps.CheckInStore.Exists(ctx, input.UserID, s.ID)
	if err != nil {
		return checkin.CheckIn{}, err
	}
	if exists {
		return checkin.CheckIn{}, rejectCheckIn(input, apperr.DuplicateCheckIn())
	}

	at := now(deps.Now)
	if err := s.CheckWindow(at, startsAt); err != nil {
		return checkin.CheckIn{}, rejectCheckIn(input, err)
	}

	occupancy, err := deps.CheckInStore.CountBySlot(ctx, s.ID)
	if err != nil {
		return checkin.CheckIn{}, err
	}
	if occupancy >= s.Capacity {
		return checkin.CheckIn{}, rejectCheckIn(input, apperr.CapacityExceeded(occupancy, s.Capacity))
	}

	c := checkin.CheckIn{
		ID:             newID(deps.GenerateID),
		TenantID:       input.TenantID,
		UserID:         input.UserID,
		SlotID:         s.ID,
		CreatedByAdmin: input.AdminID != "",
		AdminID:        input.AdminID,
		CreatedAt:      at,
	}
	if err := c.Validate(); err != nil {
		return checkin.CheckIn{}, err
	}
	if err := deps.CheckInStore.Admit(ctx, c, s.Capacity); err != nil {
		var rejection *apperr.Error
		if errors.As(err, &rejection) {
			return checkin.CheckIn{}, rejectCheckIn(input, err)
		}
		return checkin.CheckIn{}, err
	}

	slog.Info("checkin_event", "event", "member_checked_in", "tenant_id", c.TenantID,
		"user_id", c.UserID, "slot_id", c.SlotID, "by_admin", c.CreatedByAdmin)
	return c, nil
}

func rejectCheckIn(input CheckInMemberInput, err error) error {
	var rejection *apperr.Error
	if errors.As(err, &rejection) {
		slog.Info("checkin_event", "event", "checkin_rejected", "tenant_id", input.TenantID,
			"user_id", input.UserID, "slot_id", input.SlotID, "reason", rejection.Reason,
			"offset", rejection.Offset.String())
	}
	return err
}

// PrecheckStore defines the check-in lookups behind the advisory pre-checks.
type PrecheckStore interface {
	ExistsOnDate(ctx context.Context, q checkinStore.DateQuery) (bool, error)
}

// PrecheckInput identifies the member and date to inspect.
type PrecheckInput struct {
	TenantID   string
	UserID     string
	Date       string // YYYY-MM-DD
	ModalityID string // optional
}

// PrecheckResult is advisory: a later check-in request may still be rejected.
type PrecheckResult struct {
	CheckedInToday    bool
	CheckedInModality bool
}

// PrecheckDeps holds dependencies for Precheck.
type PrecheckDeps struct {
	CheckInStore PrecheckStore
}

// ExecuteCheckInPrecheck answers hasExistingCheckInToday and, when a modality is
// given, hasExistingCheckInInModality.
// PRE: UserID is non-empty; Date is YYYY-MM-DD
// POST: Result reflects committed check-ins at read time
func ExecuteCheckInPrecheck(ctx context.Context, input PrecheckInput, deps PrecheckDeps) (PrecheckResult, error) {
	if input.UserID == "" {
		return PrecheckResult{}, apperr.Validation("user ID is required")
	}
	if _, err := time.Parse(calendar.DateLayout, input.Date); err != nil {
		return PrecheckResult{}, apperr.Validation("date %q must be YYYY-MM-DD", input.Date)
	}

	q := checkinStore.DateQuery{TenantID: input.TenantID, UserID: input.UserID, Date: input.Date}
	today, err := deps.CheckInStore.ExistsOnDate(ctx, q)
	if err != nil {
		return PrecheckResult{}, err
	}
	result := PrecheckResult{CheckedInToday: today}
	if input.ModalityID != "" && today {
		q.ModalityID = input.ModalityID
		if result.CheckedInModality, err = deps.CheckInStore.ExistsOnDate(ctx, q); err != nil {
			return PrecheckResult{}, err
		}
	}
	return result, nil
}
