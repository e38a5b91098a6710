package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/adapters/http/middleware"
)

type listSlotsBody struct {
	Date  string            `json:"date"`
	Slots []daySlotResponse `json:"slots"`
}

func slotBody(start, end string) map[string]any {
	return map[string]any{
		"day_id": "d1", "start_time": start, "end_time": end,
		"modality_id": "yoga", "instructor_id": "i1", "capacity": 12,
	}
}

func TestCreateSlot(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")

	rr := h.do("POST", "/api/slots", slotBody("18:00", "19:00"), &admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[slotResponse](t, rr)
	assert.NotEmpty(t, created.SlotID)
	assert.Equal(t, 30, created.ToleranceBefore, "config default")
	assert.Equal(t, 15, created.ToleranceAfter, "config default")

	rr = h.do("POST", "/api/slots", slotBody("18:00", "19:00"), &admin)
	assert.Equal(t, http.StatusConflict, rr.Code, "exact range collision")

	rr = h.do("POST", "/api/slots", slotBody("18:30", "19:30"), &admin)
	assert.Equal(t, http.StatusCreated, rr.Code, "partial overlap is allowed")
}

func TestCreateSlot_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")

	rr := h.do("POST", "/api/slots", slotBody("18:00", "19:00"), &member)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do("POST", "/api/slots", slotBody("6pm", "19:00"), &admin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "hhmm", decode[errorResponse](t, rr).Fields["start_time"])

	rr = h.do("POST", "/api/slots", slotBody("19:00", "18:00"), &admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "end before start")

	body := slotBody("18:00", "19:00")
	body["colour"] = "red"
	rr = h.do("POST", "/api/slots", body, &admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")

	body = slotBody("18:00", "19:00")
	body["day_id"] = "missing"
	rr = h.do("POST", "/api/slots", body, &admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateAndDeactivateSlot(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)
	h.seedSlot("s2", "d1", "11:00", "12:00", 10)

	rr := h.do("PUT", "/api/slots/s2", map[string]any{"start_time": "09:00", "end_time": "10:00"}, &admin)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do("PUT", "/api/slots/s2", map[string]any{"capacity": 4}, &admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 4, decode[slotResponse](t, rr).Capacity)

	rr = h.do("DELETE", "/api/slots/s1", nil, &admin)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do("PUT", "/api/slots/s2", map[string]any{"start_time": "09:00", "end_time": "10:00"}, &admin)
	assert.Equal(t, http.StatusOK, rr.Code, "a deactivated slot frees its range")

	rr = h.do("DELETE", "/api/slots/nope", nil, &admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateSlot_CapacityBelowOccupancy(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 5)

	for _, p := range []middleware.Principal{member, owner} {
		rr := h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &p)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := h.do("PUT", "/api/slots/s1", map[string]any{"capacity": 1}, &admin)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do("GET", "/api/slots?day_id=d1", nil, &member)
	require.Equal(t, http.StatusOK, rr.Code)
	slots := decode[listSlotsBody](t, rr).Slots
	require.Len(t, slots, 1)
	assert.Equal(t, 5, slots[0].Capacity)

	rr = h.do("PUT", "/api/slots/s1", map[string]any{"capacity": 2}, &admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[slotResponse](t, rr).Capacity)
}

func TestListSlots_WithOccupancy(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 2)
	h.seedSlot("s2", "d1", "07:00", "08:00", 5)

	rr := h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &member)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = h.do("GET", "/api/slots?day_id=d1", nil, &member)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[listSlotsBody](t, rr)
	assert.Equal(t, "2026-01-09", body.Date)
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "s2", body.Slots[0].SlotID, "ordered by start time")
	assert.Equal(t, 1, body.Slots[1].Occupancy)
	assert.Equal(t, 1, body.Slots[1].Remaining)

	rr = h.do("GET", "/api/slots", nil, &member)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReplicateSlots(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedDay("d2", "2026-01-16")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)
	h.seedSlot("s2", "d1", "18:00", "19:00", 10)

	req := map[string]any{"source_day_id": "d1", "rule": "next_week"}
	rr := h.do("POST", "/api/slots/replicate", req, &admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[replicateResponse](t, rr)
	assert.Equal(t, 2, first.Created)
	require.Len(t, first.PerSlotDetail, 2)
	assert.Equal(t, []string{"2026-01-16"}, first.PerSlotDetail[0].CreatedDates)

	rr = h.do("POST", "/api/slots/replicate", req, &admin)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[replicateResponse](t, rr)
	assert.Equal(t, 0, second.Created, "replication is idempotent")
	assert.Equal(t, 2, second.Skipped)

	rr = h.do("POST", "/api/slots/replicate", map[string]any{"source_day_id": "d1", "rule": "yearly"}, &admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do("POST", "/api/slots/replicate", map[string]any{"source_day_id": "d1", "rule": "custom", "weekdays": []int{9}}, &admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
