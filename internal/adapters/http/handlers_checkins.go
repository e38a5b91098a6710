package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"studio/internal/adapters/http/middleware"
	"studio/internal/application/orchestrators"
)

type checkInRequest struct {
	UserID string `json:"user_id"`
	SlotID string `json:"slot_id" validate:"required"`
}

type precheckQuery struct {
	UserID     string `json:"user_id"`
	Date       string `json:"date" validate:"required,ymd"`
	ModalityID string `json:"modality_id"`
}

// handleCheckIn handles POST /api/checkins. Members check themselves in; admins may
// check in any member of their tenant and are recorded as the acting admin.
// The kiosk posts a form (CSRF-checked by middleware); other clients post JSON.
func handleCheckIn(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req checkInRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &req, false) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form")
			return
		}
		req = checkInRequest{UserID: r.PostFormValue("user_id"), SlotID: r.PostFormValue("slot_id")}
		if !validRequest(w, &req) {
			return
		}
	}

	input, ok := actingFor(w, r, p, req.UserID)
	if !ok {
		return
	}
	c, err := orchestrators.ExecuteCheckInMember(r.Context(), orchestrators.CheckInMemberInput{
		TenantID: p.TenantID,
		UserID:   input.userID,
		SlotID:   req.SlotID,
		AdminID:  input.adminID,
	}, orchestrators.CheckInMemberDeps{
		SlotStore:    stores.SlotStore,
		DayStore:     stores.DayStore,
		CheckInStore: stores.CheckInStore,
		Location:     settings.Location,
		Now:          clock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"checkin_id":       c.ID,
		"user_id":          c.UserID,
		"slot_id":          c.SlotID,
		"created_by_admin": c.CreatedByAdmin,
	})
}

type actor struct {
	userID  string
	adminID string
}

// actingFor resolves whose check-in this is. An empty userID means the caller.
func actingFor(w http.ResponseWriter, r *http.Request, p middleware.Principal, userID string) (actor, bool) {
	if userID == "" || userID == p.UserID {
		return actor{userID: p.UserID}, true
	}
	if !p.IsAdmin() {
		forbidden(w, r, p, middleware.RoleAdmin)
		return actor{}, false
	}
	return actor{userID: userID, adminID: p.UserID}, true
}

// handleUndoCheckIn handles DELETE /api/checkins/{id}.
func handleUndoCheckIn(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteUndoCheckIn(r.Context(), orchestrators.UndoCheckInInput{
		TenantID:  p.TenantID,
		CheckInID: r.PathValue("id"),
		AdminID:   p.UserID,
	}, orchestrators.UndoCheckInDeps{CheckInStore: stores.CheckInStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckInPrecheck handles GET /api/checkins/precheck?user_id=&date=&modality_id=.
// date defaults to today in the studio timezone.
func handleCheckInPrecheck(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	q := precheckQuery{
		UserID:     r.URL.Query().Get("user_id"),
		Date:       r.URL.Query().Get("date"),
		ModalityID: r.URL.Query().Get("modality_id"),
	}
	if q.Date == "" {
		q.Date = today()
	}
	if !validRequest(w, &q) {
		return
	}
	who, ok := actingFor(w, r, p, q.UserID)
	if !ok {
		return
	}

	result, err := orchestrators.ExecuteCheckInPrecheck(r.Context(), orchestrators.PrecheckInput{
		TenantID:   p.TenantID,
		UserID:     who.userID,
		Date:       q.Date,
		ModalityID: q.ModalityID,
	}, orchestrators.PrecheckDeps{CheckInStore: stores.CheckInStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":             who.userID,
		"date":                q.Date,
		"checked_in_today":    result.CheckedInToday,
		"checked_in_modality": result.CheckedInModality,
	})
}

// handleCSRFToken handles GET /api/csrf-token for the kiosk form.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}
