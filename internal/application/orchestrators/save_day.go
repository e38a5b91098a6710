package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
)

// DayStoreForSave defines the calendar store interface needed to enable or disable days.
type DayStoreForSave interface {
	GetByDate(ctx context.Context, tenantID, date string) (calendar.Day, error)
	Save(ctx context.Context, value calendar.Day) error
}

// SaveDayInput carries input for the save-day orchestrator.
type SaveDayInput struct {
	TenantID string
	Date     string // YYYY-MM-DD
	Active   bool
}

// SaveDayDeps holds dependencies for SaveDay.
type SaveDayDeps struct {
	DayStore   DayStoreForSave
	GenerateID func() string
}

// ExecuteSaveDay enables or disables a tenant's calendar day, creating it on first use.
// Disabling a day keeps its slots; they stop accepting new slots and replication targets.
// PRE: TenantID is non-empty
// POST: Exactly one day exists for (TenantID, Date) with the requested Active flag
func ExecuteSaveDay(ctx context.Context, input SaveDayInput, deps SaveDayDeps) (calendar.Day, error) {
	d := calendar.Day{TenantID: input.TenantID, Date: input.Date}
	if err := d.Validate(); err != nil {
		return calendar.Day{}, err
	}

	existing, err := deps.DayStore.GetByDate(ctx, input.TenantID, input.Date)
	switch {
	case err == nil:
		d = existing
	case errors.Is(err, apperr.ErrNotFound):
		d.ID = newID(deps.GenerateID)
	default:
		return calendar.Day{}, err
	}

	d.Active = input.Active
	err = deps.DayStore.Save(ctx, d)
	if errors.Is(err, apperr.ErrConflict) {
		// Another request created the date first; toggle that row instead.
		existing, getErr := deps.DayStore.GetByDate(ctx, input.TenantID, input.Date)
		if getErr != nil {
			return calendar.Day{}, err
		}
		d.ID = existing.ID
		err = deps.DayStore.Save(ctx, d)
	}
	if err != nil {
		return calendar.Day{}, err
	}
	slog.Info("day_event", "event", "day_saved", "tenant_id", d.TenantID, "day_id", d.ID,
		"date", d.Date, "active", d.Active)
	return d, nil
}
