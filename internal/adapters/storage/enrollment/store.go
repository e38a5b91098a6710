package enrollment

import (
	"context"

	domain "studio/internal/domain/enrollment"
)

// Store persists enrollments.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Enrollment, error)
	Save(ctx context.Context, value domain.Enrollment) error
	ListOpen(ctx context.Context, tenantID string) ([]domain.Enrollment, error)
	CancelGroup(ctx context.Context, ids []string) error
}
