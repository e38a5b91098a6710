package projections

import (
	"context"

	"studio/internal/domain/calendar"
	"studio/internal/domain/slot"
)

// DaySlotsDayStore interface for calendar day lookups.
type DaySlotsDayStore interface {
	GetByID(ctx context.Context, tenantID, id string) (calendar.Day, error)
}

// DaySlotsSlotStore interface for a day's active slots.
type DaySlotsSlotStore interface {
	ListActiveByDay(ctx context.Context, tenantID, dayID, modalityID string) ([]slot.Slot, error)
}

// DaySlotsCheckInStore interface for batched occupancy counts.
type DaySlotsCheckInStore interface {
	CountBySlots(ctx context.Context, slotIDs []string) (map[string]int, error)
}
