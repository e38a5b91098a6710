package web

import (
	"net/http"
	"time"

	"studio/internal/application/orchestrators"
	"studio/internal/domain/calendar"
)

// defaultDaysAhead is the listing horizon when GET /api/days has no "to".
const defaultDaysAhead = 31

type saveDayRequest struct {
	Date   string `json:"date" validate:"required,ymd"`
	Active *bool  `json:"active"`
}

type dayResponse struct {
	DayID  string `json:"day_id"`
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

// handleSaveDay handles POST /api/days. active defaults to true.
func handleSaveDay(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req saveDayRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	active := req.Active == nil || *req.Active

	d, err := orchestrators.ExecuteSaveDay(r.Context(), orchestrators.SaveDayInput{
		TenantID: p.TenantID,
		Date:     req.Date,
		Active:   active,
	}, orchestrators.SaveDayDeps{DayStore: stores.DayStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dayResponse{DayID: d.ID, Date: d.Date, Active: d.Active})
}

// handleListDays handles GET /api/days?from=&to=. from defaults to today and to to
// defaultDaysAhead days later.
func handleListDays(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	from := r.URL.Query().Get("from")
	if from == "" {
		from = today()
	}
	start, err := time.Parse(calendar.DateLayout, from)
	if err != nil {
		badRequest(w, "from must be YYYY-MM-DD")
		return
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		to = start.AddDate(0, 0, defaultDaysAhead).Format(calendar.DateLayout)
	} else if _, err := time.Parse(calendar.DateLayout, to); err != nil {
		badRequest(w, "to must be YYYY-MM-DD")
		return
	}

	days, err := stores.DayStore.ListActiveInRange(r.Context(), p.TenantID, from, to)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dayResponse{DayID: d.ID, Date: d.Date, Active: d.Active})
	}
	writeJSON(w, http.StatusOK, out)
}
