package slot

import (
	"context"

	domain "studio/internal/domain/slot"
)

// Store persists class slots.
type Store interface {
	GetByID(ctx context.Context, tenantID, id string) (domain.Slot, error)
	Create(ctx context.Context, value domain.Slot) error
	Update(ctx context.Context, value domain.Slot) error
	Deactivate(ctx context.Context, tenantID, id string) error
	FindOccupancy(ctx context.Context, q OccupancyQuery) ([]domain.Slot, error)
	ListActiveByDay(ctx context.Context, tenantID, dayID, modalityID string) ([]domain.Slot, error)
}

// OccupancyQuery identifies a (day, start, end) triple to test for collisions.
// ExcludeID lets an update ignore its own row.
type OccupancyQuery struct {
	TenantID  string
	DayID     string
	StartTime string
	EndTime   string
	ExcludeID string
}
