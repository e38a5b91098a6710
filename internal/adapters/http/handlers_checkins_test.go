package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/domain/apperr"
)

func TestCheckIn_AdmitsThenDuplicate(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)

	rr := h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &member)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode[map[string]any](t, rr)
	assert.NotEmpty(t, body["checkin_id"])
	assert.Equal(t, "m1", body["user_id"])
	assert.Equal(t, false, body["created_by_admin"])

	rr = h.do("POST", "/api/checkins", map[string]any{"user_id": "m1", "slot_id": "s1"}, &member)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apperr.ReasonDuplicate, decode[rejectionResponse](t, rr).Reason)
}

func TestCheckIn_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("early", "d1", "10:00", "11:00", 10) // opens 09:30, now is 08:50
	h.seedSlot("late", "d1", "08:00", "09:00", 10)  // closed 08:15
	h.seedSlot("tiny", "d1", "09:00", "09:45", 1)

	rr := h.do("POST", "/api/checkins", map[string]any{"slot_id": "early"}, &member)
	require.Equal(t, http.StatusForbidden, rr.Code)
	rejection := decode[rejectionResponse](t, rr)
	assert.Equal(t, apperr.ReasonTooEarly, rejection.Reason)
	assert.Equal(t, int64(40*60), rejection.OffsetSeconds)

	rr = h.do("POST", "/api/checkins", map[string]any{"slot_id": "late"}, &member)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apperr.ReasonTooLate, decode[rejectionResponse](t, rr).Reason)

	rr = h.do("POST", "/api/checkins", map[string]any{"slot_id": "tiny"}, &admin)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = h.do("POST", "/api/checkins", map[string]any{"slot_id": "tiny"}, &member)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apperr.ReasonFull, decode[rejectionResponse](t, rr).Reason)

	rr = h.do("POST", "/api/checkins", map[string]any{"slot_id": "ghost"}, &member)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do("POST", "/api/checkins", map[string]any{}, &member)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckIn_OnBehalfOfMember(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)

	rr := h.do("POST", "/api/checkins", map[string]any{"user_id": "m2", "slot_id": "s1"}, &member)
	assert.Equal(t, http.StatusForbidden, rr.Code, "members cannot check in others")

	rr = h.do("POST", "/api/checkins", map[string]any{"user_id": "m2", "slot_id": "s1"}, &admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "m2", body["user_id"])
	assert.Equal(t, true, body["created_by_admin"])
}

func TestCheckIn_KioskForm(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)

	form := url.Values{"slot_id": {"s1"}}.Encode()
	post := func(token string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/checkins", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		h.authorize(req, member)
		rr := httptest.NewRecorder()
		h.handler.ServeHTTP(rr, req)
		return rr
	}

	rr := post("", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code, "form posts need a CSRF token")

	tokenResp := h.do("GET", "/api/csrf-token", nil, &member)
	require.Equal(t, http.StatusOK, tokenResp.Code)
	token := decode[map[string]string](t, tokenResp)["csrf_token"]
	require.NotEmpty(t, token)

	rr = post(token, tokenResp.Result().Cookies())
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestUndoCheckIn(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)

	rr := h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &member)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[map[string]any](t, rr)["checkin_id"].(string)

	rr = h.do("DELETE", "/api/checkins/"+id, nil, &member)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do("DELETE", "/api/checkins/"+id, nil, &admin)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do("DELETE", "/api/checkins/"+id, nil, &admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &member)
	assert.Equal(t, http.StatusCreated, rr.Code, "an undone check-in can be redone")
}

func TestCheckInPrecheck(t *testing.T) {
	h := newHarness(t)
	h.seedDay("d1", "2026-01-09")
	h.seedSlot("s1", "d1", "09:00", "10:00", 10)

	rr := h.do("GET", "/api/checkins/precheck?modality_id=yoga", nil, &member)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	before := decode[map[string]any](t, rr)
	assert.Equal(t, "2026-01-09", before["date"], "date defaults to today")
	assert.Equal(t, false, before["checked_in_today"])

	require.Equal(t, http.StatusCreated, h.do("POST", "/api/checkins", map[string]any{"slot_id": "s1"}, &member).Code)

	rr = h.do("GET", "/api/checkins/precheck?modality_id=yoga&date=2026-01-09", nil, &member)
	after := decode[map[string]any](t, rr)
	assert.Equal(t, true, after["checked_in_today"])
	assert.Equal(t, true, after["checked_in_modality"])

	rr = h.do("GET", "/api/checkins/precheck?user_id=m1&modality_id=boxing", nil, &admin)
	require.Equal(t, http.StatusOK, rr.Code)
	other := decode[map[string]any](t, rr)
	assert.Equal(t, true, other["checked_in_today"])
	assert.Equal(t, false, other["checked_in_modality"])

	rr = h.do("GET", "/api/checkins/precheck?user_id=m9", nil, &member)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do("GET", "/api/checkins/precheck?date=tomorrow", nil, &member)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
