package web

import (
	"net/http"

	"studio/internal/application/orchestrators"
	"studio/internal/application/projections"
	"studio/internal/domain/slot"
)

type createSlotRequest struct {
	DayID           string `json:"day_id" validate:"required"`
	StartTime       string `json:"start_time" validate:"required,hhmm"`
	EndTime         string `json:"end_time" validate:"required,hhmm"`
	ModalityID      string `json:"modality_id" validate:"required"`
	InstructorID    string `json:"instructor_id"`
	Capacity        int    `json:"capacity" validate:"required,gt=0"`
	ToleranceBefore *int   `json:"tolerance_before_minutes" validate:"omitempty,gte=0"`
	ToleranceAfter  *int   `json:"tolerance_after_minutes" validate:"omitempty,gte=0"`
}

type updateSlotRequest struct {
	DayID           string `json:"day_id"`
	StartTime       string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime         string `json:"end_time" validate:"omitempty,hhmm"`
	ModalityID      string `json:"modality_id"`
	InstructorID    string `json:"instructor_id"`
	Capacity        int    `json:"capacity" validate:"omitempty,gt=0"`
	ToleranceBefore *int   `json:"tolerance_before_minutes" validate:"omitempty,gte=0"`
	ToleranceAfter  *int   `json:"tolerance_after_minutes" validate:"omitempty,gte=0"`
}

type replicateRequest struct {
	SourceDayID string `json:"source_day_id" validate:"required"`
	Rule        string `json:"rule" validate:"required,oneof=next_week full_month custom"`
	Weekdays    []int  `json:"weekdays" validate:"omitempty,dive,gte=0,lte=6"`
	Month       string `json:"month"`
	ModalityID  string `json:"modality_id"`
}

type slotResponse struct {
	SlotID          string `json:"slot_id"`
	DayID           string `json:"day_id"`
	ModalityID      string `json:"modality_id"`
	InstructorID    string `json:"instructor_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Capacity        int    `json:"capacity"`
	ToleranceBefore int    `json:"tolerance_before_minutes"`
	ToleranceAfter  int    `json:"tolerance_after_minutes"`
	Active          bool   `json:"active"`
}

type daySlotResponse struct {
	slotResponse
	Occupancy int  `json:"occupancy"`
	Remaining int  `json:"remaining"`
	Full      bool `json:"full"`
}

type slotReplicationResponse struct {
	SlotID       string   `json:"slot_id"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	CreatedDates []string `json:"created_dates"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
}

type replicateResponse struct {
	Created       int                       `json:"created"`
	Skipped       int                       `json:"skipped"`
	Failed        int                       `json:"failed"`
	PerSlotDetail []slotReplicationResponse `json:"per_slot_detail"`
}

func toSlotResponse(s slot.Slot) slotResponse {
	return slotResponse{
		SlotID:          s.ID,
		DayID:           s.DayID,
		ModalityID:      s.ModalityID,
		InstructorID:    s.InstructorID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Capacity:        s.Capacity,
		ToleranceBefore: s.ToleranceBefore,
		ToleranceAfter:  s.ToleranceAfter,
		Active:          s.Active,
	}
}

// handleCreateSlot handles POST /api/slots.
func handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req createSlotRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	s, err := orchestrators.ExecuteCreateSlot(r.Context(), orchestrators.CreateSlotInput{
		TenantID:        p.TenantID,
		DayID:           req.DayID,
		ModalityID:      req.ModalityID,
		InstructorID:    req.InstructorID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Capacity:        req.Capacity,
		ToleranceBefore: req.ToleranceBefore,
		ToleranceAfter:  req.ToleranceAfter,
	}, orchestrators.CreateSlotDeps{
		SlotStore: stores.SlotStore,
		DayStore:  stores.DayStore,
		Defaults:  settings.Tolerances,
		Now:       clock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotResponse(s))
}

// handleUpdateSlot handles PUT /api/slots/{id}.
func handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req updateSlotRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	s, err := orchestrators.ExecuteUpdateSlot(r.Context(), orchestrators.UpdateSlotInput{
		TenantID:        p.TenantID,
		SlotID:          r.PathValue("id"),
		DayID:           req.DayID,
		ModalityID:      req.ModalityID,
		InstructorID:    req.InstructorID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Capacity:        req.Capacity,
		ToleranceBefore: req.ToleranceBefore,
		ToleranceAfter:  req.ToleranceAfter,
	}, orchestrators.UpdateSlotDeps{
		SlotStore:    stores.SlotStore,
		DayStore:     stores.DayStore,
		CheckInStore: stores.CheckInStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(s))
}

// handleDeactivateSlot handles DELETE /api/slots/{id}.
func handleDeactivateSlot(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeactivateSlot(r.Context(), orchestrators.DeactivateSlotInput{
		TenantID: p.TenantID,
		SlotID:   r.PathValue("id"),
	}, orchestrators.DeactivateSlotDeps{SlotStore: stores.SlotStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListSlots handles GET /api/slots?day_id=&modality_id=.
func handleListSlots(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	dayID := r.URL.Query().Get("day_id")
	if dayID == "" {
		badRequest(w, "day_id is required")
		return
	}

	result, err := projections.QueryGetDaySlots(r.Context(), projections.GetDaySlotsQuery{
		TenantID:   p.TenantID,
		DayID:      dayID,
		ModalityID: r.URL.Query().Get("modality_id"),
	}, projections.GetDaySlotsDeps{
		DayStore:     stores.DayStore,
		SlotStore:    stores.SlotStore,
		CheckInStore: stores.CheckInStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]daySlotResponse, 0, len(result.Slots))
	for _, s := range result.Slots {
		out = append(out, daySlotResponse{
			slotResponse: toSlotResponse(s.Slot),
			Occupancy:    s.Occupancy,
			Remaining:    s.Remaining,
			Full:         s.Full,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day_id": result.Day.ID,
		"date":   result.Day.Date,
		"slots":  out,
	})
}

// handleReplicateSlots handles POST /api/slots/replicate.
func handleReplicateSlots(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req replicateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := orchestrators.ExecuteReplicateSlots(r.Context(), orchestrators.ReplicateSlotsInput{
		TenantID:    p.TenantID,
		SourceDayID: req.SourceDayID,
		Rule:        orchestrators.ReplicationRule(req.Rule),
		Weekdays:    req.Weekdays,
		Month:       req.Month,
		ModalityID:  req.ModalityID,
	}, orchestrators.ReplicateSlotsDeps{
		SlotStore: stores.SlotStore,
		DayStore:  stores.DayStore,
		Location:  settings.Location,
		Workers:   settings.ReplicationWorkers,
		Now:       clock,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := replicateResponse{
		Created:       result.Created,
		Skipped:       result.Skipped,
		Failed:        result.Failed,
		PerSlotDetail: make([]slotReplicationResponse, 0, len(result.PerSlot)),
	}
	for _, s := range result.PerSlot {
		resp.PerSlotDetail = append(resp.PerSlotDetail, slotReplicationResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}
