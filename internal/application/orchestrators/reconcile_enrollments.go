package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"studio/internal/domain/enrollment"
)

// EnrollmentStoreForReconcile defines the enrollment store interface needed by the sweep.
type EnrollmentStoreForReconcile interface {
	ListOpen(ctx context.Context, tenantID string) ([]enrollment.Enrollment, error)
	CancelGroup(ctx context.Context, ids []string) error
}

// ReconcileEnrollmentsInput scopes the sweep. An empty TenantID sweeps every tenant.
type ReconcileEnrollmentsInput struct {
	TenantID string
}

// ReconcileEnrollmentsDeps holds dependencies for ReconcileEnrollments.
type ReconcileEnrollmentsDeps struct {
	EnrollmentStore EnrollmentStoreForReconcile
}

// ReconcileResult summarises one sweep.
type ReconcileResult struct {
	CancelledCount   int
	GroupsProcessed  int
	GroupsReconciled int
	FailedGroups     int
}

type reconcileKey struct {
	tenantID string
	group    enrollment.GroupKey
}

// ExecuteReconcileEnrollments keeps one open enrollment per (member, modality) and
// cancels the rest. Each group commits or rolls back on its own; a failed group is
// logged and the sweep moves on.
// PRE: none
// POST: Every successfully processed group has exactly one open enrollment
// INVARIANT: Idempotent; enrollments in different modalities are never compared
func ExecuteReconcileEnrollments(ctx context.Context, input ReconcileEnrollmentsInput, deps ReconcileEnrollmentsDeps) (ReconcileResult, error) {
	open, err := deps.EnrollmentStore.ListOpen(ctx, input.TenantID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list open enrollments: %w", err)
	}

	var order []reconcileKey
	groups := make(map[reconcileKey][]enrollment.Enrollment)
	for _, e := range open {
		k := reconcileKey{tenantID: e.TenantID, group: e.Key()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var result ReconcileResult
	for _, k := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.GroupsProcessed++
		group := groups[k]
		if len(group) < 2 {
			continue
		}

		keep, cancel := enrollment.Partition(group)
		ids, err := cancelLosers(cancel)
		if err == nil {
			err = deps.EnrollmentStore.CancelGroup(ctx, ids)
		}
		if err != nil {
			result.FailedGroups++
			slog.Error("enrollment_event", "event", "reconcile_group_failed", "tenant_id", k.tenantID,
				"user_id", k.group.UserID, "modality_id", k.group.ModalityID, "error", err.Error())
			continue
		}
		result.GroupsReconciled++
		result.CancelledCount += len(ids)
		slog.Info("enrollment_event", "event", "reconcile_group", "tenant_id", k.tenantID,
			"user_id", k.group.UserID, "modality_id", k.group.ModalityID,
			"kept_id", keep.ID, "cancelled", len(ids))
	}

	slog.Info("enrollment_event", "event", "reconcile_complete", "tenant_id", input.TenantID,
		"groups_processed", result.GroupsProcessed, "groups_reconciled", result.GroupsReconciled,
		"cancelled", result.CancelledCount, "failed_groups", result.FailedGroups)
	return result, nil
}

// cancelLosers moves every losing enrollment to cancelled and returns their IDs.
// The group is rejected whole if any member is no longer open.
func cancelLosers(losers []enrollment.Enrollment) ([]string, error) {
	ids := make([]string, len(losers))
	for i := range losers {
		if err := losers[i].Cancel(); err != nil {
			return nil, err
		}
		ids[i] = losers[i].ID
	}
	return ids, nil
}
