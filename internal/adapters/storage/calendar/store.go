package calendar

import (
	"context"

	domain "studio/internal/domain/calendar"
)

// Store persists enabled calendar days.
type Store interface {
	GetByID(ctx context.Context, tenantID, id string) (domain.Day, error)
	GetByDate(ctx context.Context, tenantID, date string) (domain.Day, error)
	Save(ctx context.Context, value domain.Day) error
	ListActiveInRange(ctx context.Context, tenantID, from, to string) ([]domain.Day, error)
}
