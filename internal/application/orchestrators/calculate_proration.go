package orchestrators

import (
	"context"
	"time"

	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/plan"
)

// PlanLookupStore defines the plan store interface needed for proration.
type PlanLookupStore interface {
	GetByID(ctx context.Context, tenantID, id string) (plan.Plan, error)
}

// CalculateProrationInput carries input for the proration calculator.
type CalculateProrationInput struct {
	TenantID       string
	PreviousPlanID string
	NewPlanID      string
	DueDate        string // YYYY-MM-DD, next billing date of the previous plan
}

// CalculateProrationDeps holds dependencies for CalculateProration.
type CalculateProrationDeps struct {
	PlanStore PlanLookupStore
	Location  *time.Location
	Now       func() time.Time
}

// ExecuteCalculateProration prices a mid-cycle plan change. Nothing is persisted.
// PRE: both plans belong to TenantID
// POST: Delta rounded to cents; Direction matches the sign of Delta
func ExecuteCalculateProration(ctx context.Context, input CalculateProrationInput, deps CalculateProrationDeps) (plan.Proration, error) {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	due, err := time.ParseInLocation(calendar.DateLayout, input.DueDate, loc)
	if err != nil {
		return plan.Proration{}, apperr.Validation("due date %q must be YYYY-MM-DD", input.DueDate)
	}

	prev, err := deps.PlanStore.GetByID(ctx, input.TenantID, input.PreviousPlanID)
	if err != nil {
		return plan.Proration{}, err
	}
	next, err := deps.PlanStore.GetByID(ctx, input.TenantID, input.NewPlanID)
	if err != nil {
		return plan.Proration{}, err
	}

	return plan.Prorate(prev, next, plan.RemainingDays(now(deps.Now).In(loc), due))
}
