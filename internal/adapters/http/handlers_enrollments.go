package web

import (
	"net/http"

	"studio/internal/application/orchestrators"
)

type reconcileRequest struct {
	TenantID string `json:"tenant_id"`
	Global   bool   `json:"global"`
}

type reconcileResponse struct {
	CancelledCount   int `json:"cancelled_count"`
	GroupsProcessed  int `json:"groups_processed"`
	GroupsReconciled int `json:"groups_reconciled"`
	FailedGroups     int `json:"failed_groups"`
}

type prorationRequest struct {
	PreviousPlanID string `json:"previous_plan_id" validate:"required"`
	NewPlanID      string `json:"new_plan_id" validate:"required"`
	DueDate        string `json:"due_date" validate:"required,ymd"`
}

type prorationResponse struct {
	Delta         float64 `json:"delta"`
	Direction     string  `json:"direction"`
	Amount        float64 `json:"amount"`
	RemainingDays int     `json:"remaining_days"`
}

// handleReconcileEnrollments handles POST /api/enrollments/reconcile.
// Admins reconcile their own tenant; a global sweep needs the owner role.
func handleReconcileEnrollments(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req reconcileRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	tenantID := p.TenantID
	switch {
	case req.Global:
		if _, ok := requireOwner(w, r); !ok {
			return
		}
		tenantID = ""
	case req.TenantID != "" && req.TenantID != p.TenantID:
		forbidden(w, r, p, "same tenant")
		return
	}

	result, err := orchestrators.ExecuteReconcileEnrollments(r.Context(),
		orchestrators.ReconcileEnrollmentsInput{TenantID: tenantID},
		orchestrators.ReconcileEnrollmentsDeps{EnrollmentStore: stores.EnrollmentStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse(result))
}

// handleProration handles POST /api/proration.
func handleProration(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req prorationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := orchestrators.ExecuteCalculateProration(r.Context(), orchestrators.CalculateProrationInput{
		TenantID:       p.TenantID,
		PreviousPlanID: req.PreviousPlanID,
		NewPlanID:      req.NewPlanID,
		DueDate:        req.DueDate,
	}, orchestrators.CalculateProrationDeps{
		PlanStore: stores.PlanStore,
		Location:  settings.Location,
		Now:       clock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prorationResponse{
		Delta:         result.Delta,
		Direction:     string(result.Direction),
		Amount:        result.Amount,
		RemainingDays: result.RemainingDays,
	})
}
