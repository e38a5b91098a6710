package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/slot"
)

// SlotStoreForRegistry defines the slot store interface needed by the registry.
type SlotStoreForRegistry interface {
	GetByID(ctx context.Context, tenantID, id string) (slot.Slot, error)
	Create(ctx context.Context, value slot.Slot) error
	Update(ctx context.Context, value slot.Slot) error
	Deactivate(ctx context.Context, tenantID, id string) error
	FindOccupancy(ctx context.Context, q slotStore.OccupancyQuery) ([]slot.Slot, error)
}

// DayLookupStore defines the calendar lookup needed to bind slots to days.
type DayLookupStore interface {
	GetByID(ctx context.Context, tenantID, id string) (calendar.Day, error)
}

// Tolerances are the admission window defaults, in minutes, for slots created
// without explicit values.
type Tolerances struct {
	Before int
	After  int
}

// CreateSlotInput carries input for the create-slot orchestrator.
// Nil tolerances fall back to CreateSlotDeps.Defaults.
type CreateSlotInput struct {
	TenantID        string
	DayID           string
	ModalityID      string
	InstructorID    string
	StartTime       string
	EndTime         string
	Capacity        int
	ToleranceBefore *int
	ToleranceAfter  *int
}

// CreateSlotDeps holds dependencies for CreateSlot.
type CreateSlotDeps struct {
	SlotStore  SlotStoreForRegistry
	DayStore   DayLookupStore
	Defaults   Tolerances
	GenerateID func() string    // optional, defaults to uuid
	Now        func() time.Time // optional, defaults to time.Now
}

// ExecuteCreateSlot registers a class slot on an active calendar day.
// PRE: TenantID and DayID are non-empty
// POST: Slot persisted and returned, or ValidationError / NotFoundError / ConflictError
// INVARIANT: No two active slots of a tenant share (day, start, end)
func ExecuteCreateSlot(ctx context.Context, input CreateSlotInput, deps CreateSlotDeps) (slot.Slot, error) {
	if _, err := requireActiveDay(ctx, deps.DayStore, input.TenantID, input.DayID); err != nil {
		return slot.Slot{}, err
	}

	s := slot.Slot{
		ID:              newID(deps.GenerateID),
		TenantID:        input.TenantID,
		ModalityID:      input.ModalityID,
		InstructorID:    input.InstructorID,
		DayID:           input.DayID,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		Capacity:        input.Capacity,
		ToleranceBefore: intOr(input.ToleranceBefore, deps.Defaults.Before),
		ToleranceAfter:  intOr(input.ToleranceAfter, deps.Defaults.After),
		Active:          true,
		CreatedAt:       now(deps.Now),
	}
	if err := s.Validate(); err != nil {
		return slot.Slot{}, err
	}
	if err := ensureVacant(ctx, deps.SlotStore, s); err != nil {
		return slot.Slot{}, err
	}

	// A concurrent create that passed ensureVacant surfaces here as ConflictError.
	if err := deps.SlotStore.Create(ctx, s); err != nil {
		return slot.Slot{}, err
	}

	slog.Info("slot_event", "event", "slot_created", "tenant_id", s.TenantID, "slot_id", s.ID,
		"day_id", s.DayID, "start_time", s.StartTime, "end_time", s.EndTime, "capacity", s.Capacity)
	return s, nil
}

// UpdateSlotInput carries the fields to change. Empty strings, zero capacity and nil
// tolerances keep the stored value.
type UpdateSlotInput struct {
	TenantID        string
	SlotID          string
	DayID           string
	ModalityID      string
	InstructorID    string
	StartTime       string
	EndTime         string
	Capacity        int
	ToleranceBefore *int
	ToleranceAfter  *int
}

// OccupancyCounter counts the check-ins already admitted to a slot.
type OccupancyCounter interface {
	CountBySlot(ctx context.Context, slotID string) (int, error)
}

// UpdateSlotDeps holds dependencies for UpdateSlot.
type UpdateSlotDeps struct {
	SlotStore    SlotStoreForRegistry
	DayStore     DayLookupStore
	CheckInStore OccupancyCounter
}

// ExecuteUpdateSlot applies a partial update to an active slot.
// PRE: TenantID and SlotID are non-empty
// POST: Slot re-validated and persisted; collisions with other slots yield ConflictError
// INVARIANT: Capacity never drops below the slot's current check-in count
func ExecuteUpdateSlot(ctx context.Context, input UpdateSlotInput, deps UpdateSlotDeps) (slot.Slot, error) {
	s, err := deps.SlotStore.GetByID(ctx, input.TenantID, input.SlotID)
	if err != nil {
		return slot.Slot{}, err
	}
	if !s.Active {
		return slot.Slot{}, apperr.NotFound("slot %s is not active", input.SlotID)
	}

	if input.DayID != "" && input.DayID != s.DayID {
		if _, err := requireActiveDay(ctx, deps.DayStore, input.TenantID, input.DayID); err != nil {
			return slot.Slot{}, err
		}
		s.DayID = input.DayID
	}
	if input.Capacity != 0 && input.Capacity < s.Capacity {
		occupancy, err := deps.CheckInStore.CountBySlot(ctx, s.ID)
		if err != nil {
			return slot.Slot{}, err
		}
		if input.Capacity < occupancy {
			return slot.Slot{}, apperr.Conflict("capacity %d is below the %d members already checked in", input.Capacity, occupancy)
		}
	}
	s.ModalityID = stringOr(input.ModalityID, s.ModalityID)
	s.InstructorID = stringOr(input.InstructorID, s.InstructorID)
	s.StartTime = stringOr(input.StartTime, s.StartTime)
	s.EndTime = stringOr(input.EndTime, s.EndTime)
	if input.Capacity != 0 {
		s.Capacity = input.Capacity
	}
	s.ToleranceBefore = intOr(input.ToleranceBefore, s.ToleranceBefore)
	s.ToleranceAfter = intOr(input.ToleranceAfter, s.ToleranceAfter)

	if err := s.Validate(); err != nil {
		return slot.Slot{}, err
	}
	if err := ensureVacant(ctx, deps.SlotStore, s); err != nil {
		return slot.Slot{}, err
	}
	if err := deps.SlotStore.Update(ctx, s); err != nil {
		return slot.Slot{}, err
	}

	slog.Info("slot_event", "event", "slot_updated", "tenant_id", s.TenantID, "slot_id", s.ID)
	return s, nil
}

// DeactivateSlotInput carries input for the deactivate orchestrator.
type DeactivateSlotInput struct {
	TenantID string
	SlotID   string
}

// DeactivateSlotDeps holds dependencies for DeactivateSlot.
type DeactivateSlotDeps struct {
	SlotStore SlotStoreForRegistry
}

// ExecuteDeactivateSlot soft-deletes a slot. Existing check-ins are kept.
// PRE: TenantID and SlotID are non-empty
// POST: Slot active=false; its time range is free for a new slot
func ExecuteDeactivateSlot(ctx context.Context, input DeactivateSlotInput, deps DeactivateSlotDeps) error {
	if input.SlotID == "" {
		return apperr.Validation("slot ID is required")
	}
	if err := deps.SlotStore.Deactivate(ctx, input.TenantID, input.SlotID); err != nil {
		return err
	}
	slog.Info("slot_event", "event", "slot_deactivated", "tenant_id", input.TenantID, "slot_id", input.SlotID)
	return nil
}

// requireActiveDay loads a tenant's day and rejects disabled ones.
func requireActiveDay(ctx context.Context, days DayLookupStore, tenantID, dayID string) (calendar.Day, error) {
	if dayID == "" {
		return calendar.Day{}, apperr.Validation("day ID is required")
	}
	d, err := days.GetByID(ctx, tenantID, dayID)
	if err != nil {
		return calendar.Day{}, err
	}
	if !d.Active {
		return calendar.Day{}, apperr.NotFound("day %s is not enabled", dayID)
	}
	return d, nil
}

// ensureVacant returns ConflictError when another active slot holds s's exact range.
func ensureVacant(ctx context.Context, store SlotStoreForRegistry, s slot.Slot) error {
	taken, err := store.FindOccupancy(ctx, slotStore.OccupancyQuery{
		TenantID:  s.TenantID,
		DayID:     s.DayID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		ExcludeID: s.ID,
	})
	if err != nil {
		return err
	}
	if held := collisions(taken, s); len(held) > 0 {
		return apperr.Conflict("slot %s already occupies %s-%s on this day", held[0].ID, s.StartTime, s.EndTime)
	}
	return nil
}

// collisions keeps the active slots of candidates that collide with s, other than s itself.
func collisions(candidates []slot.Slot, s slot.Slot) []slot.Slot {
	var out []slot.Slot
	for _, c := range candidates {
		if c.ID != s.ID && c.Active && c.Collides(s) {
			out = append(out, c)
		}
	}
	return out
}

func newID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.New().String()
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock()
	}
	return time.Now()
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// isConflict reports whether err is a slot collision.
func isConflict(err error) bool {
	return errors.Is(err, apperr.ErrConflict)
}
