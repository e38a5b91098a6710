package plan

import (
	"context"

	domain "studio/internal/domain/plan"
)

// Store persists plans. The scheduling core only reads them.
type Store interface {
	GetByID(ctx context.Context, tenantID, id string) (domain.Plan, error)
	Save(ctx context.Context, value domain.Plan) error
}
