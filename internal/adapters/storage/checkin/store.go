package checkin

import (
	"context"

	domain "studio/internal/domain/checkin"
)

// Store persists check-ins.
type Store interface {
	GetByID(ctx context.Context, tenantID, id string) (domain.CheckIn, error)
	Admit(ctx context.Context, value domain.CheckIn, capacity int) error
	Delete(ctx context.Context, tenantID, id string) error
	CountBySlot(ctx context.Context, slotID string) (int, error)
	CountBySlots(ctx context.Context, slotIDs []string) (map[string]int, error)
	Exists(ctx context.Context, userID, slotID string) (bool, error)
	ExistsOnDate(ctx context.Context, q DateQuery) (bool, error)
}

// DateQuery looks for a member's check-ins on a calendar date, optionally within one modality.
type DateQuery struct {
	TenantID   string
	UserID     string
	Date       string // YYYY-MM-DD
	ModalityID string // empty matches any modality
}
