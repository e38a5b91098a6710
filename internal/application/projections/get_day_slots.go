package projections

import (
	"context"
	"fmt"

	"studio/internal/domain/calendar"
	"studio/internal/domain/slot"
)

// GetDaySlotsDeps holds dependencies for the projection.
type GetDaySlotsDeps struct {
	DayStore     DaySlotsDayStore
	SlotStore    DaySlotsSlotStore
	CheckInStore DaySlotsCheckInStore
}

// GetDaySlotsQuery selects a tenant's day and an optional modality.
type GetDaySlotsQuery struct {
	TenantID   string
	DayID      string
	ModalityID string
}

// DaySlot is an active slot with its live occupancy.
type DaySlot struct {
	Slot      slot.Slot
	Occupancy int
	Remaining int
	Full      bool
}

// DaySlotsResult is a day with its slots ordered by start time.
type DaySlotsResult struct {
	Day   calendar.Day
	Slots []DaySlot
}

// QueryGetDaySlots lists the active slots of a day with occupancy counted from check-ins
// in one query. Occupancy is a snapshot; admission recounts at check-in time.
// PRE: DayID refers to a day of TenantID
// POST: Remaining = max(Capacity - Occupancy, 0) for each slot
func QueryGetDaySlots(ctx context.Context, query GetDaySlotsQuery, deps GetDaySlotsDeps) (DaySlotsResult, error) {
	day, err := deps.DayStore.GetByID(ctx, query.TenantID, query.DayID)
	if err != nil {
		return DaySlotsResult{}, err
	}

	slots, err := deps.SlotStore.ListActiveByDay(ctx, query.TenantID, day.ID, query.ModalityID)
	if err != nil {
		return DaySlotsResult{}, fmt.Errorf("list slots: %w", err)
	}

	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	counts, err := deps.CheckInStore.CountBySlots(ctx, ids)
	if err != nil {
		return DaySlotsResult{}, fmt.Errorf("count check-ins: %w", err)
	}

	result := DaySlotsResult{Day: day, Slots: make([]DaySlot, 0, len(slots))}
	for _, s := range slots {
		n := counts[s.ID]
		result.Slots = append(result.Slots, DaySlot{
			Slot:      s,
			Occupancy: n,
			Remaining: max(s.Capacity-n, 0),
			Full:      n >= s.Capacity,
		})
	}
	return result, nil
}
