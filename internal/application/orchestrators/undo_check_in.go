package orchestrators

import (
	"context"
	"log/slog"

	"studio/internal/domain/apperr"
	"studio/internal/domain/checkin"
)

// UndoCheckInStore defines the check-in store interface needed for undo.
type UndoCheckInStore interface {
	GetByID(ctx context.Context, tenantID, id string) (checkin.CheckIn, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// UndoCheckInInput carries input for the undo check-in orchestrator.
type UndoCheckInInput struct {
	TenantID  string
	CheckInID string
	AdminID   string
}

// UndoCheckInDeps holds dependencies for UndoCheckIn.
type UndoCheckInDeps struct {
	CheckInStore UndoCheckInStore
}

// ExecuteUndoCheckIn removes a check-in as an administrative override, freeing the seat.
// PRE: CheckInID is non-empty and belongs to TenantID
// POST: Check-in row deleted
func ExecuteUndoCheckIn(ctx context.Context, input UndoCheckInInput, deps UndoCheckInDeps) error {
	if input.CheckInID == "" {
		return apperr.Validation("check-in ID is required")
	}

	c, err := deps.CheckInStore.GetByID(ctx, input.TenantID, input.CheckInID)
	if err != nil {
		return err
	}
	if err := deps.CheckInStore.Delete(ctx, input.TenantID, c.ID); err != nil {
		return err
	}

	slog.Info("checkin_event", "event", "checkin_undone", "tenant_id", input.TenantID,
		"checkin_id", c.ID, "user_id", c.UserID, "slot_id", c.SlotID, "admin_id", input.AdminID)
	return nil
}
