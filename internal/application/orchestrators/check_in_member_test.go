package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/checkin"
	"studio/internal/domain/slot"
)

// classSlot starts 09:00 on 2026-01-09 with a 08:30-09:15 admission window.
func classSlot(capacity int) slot.Slot {
	return slot.Slot{ID: "yoga-9", TenantID: tenant, ModalityID: "yoga", DayID: "jan09",
		StartTime: "09:00", EndTime: "10:00", Capacity: capacity, ToleranceBefore: 30, ToleranceAfter: 15, Active: true}
}

func admissionDeps(s slot.Slot, checkins *fakeCheckIns, at time.Time) CheckInMemberDeps {
	return CheckInMemberDeps{
		SlotStore:    newFakeSlots(s),
		DayStore:     newFakeDays(calendar.Day{ID: "jan09", Date: "2026-01-09", Active: true}),
		CheckInStore: checkins,
		GenerateID:   sequentialIDs("ci"),
		Now:          clockAt(at),
	}
}

func at(hhmm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-01-09 "+hhmm)
	return t
}

// TestExecuteCheckInMember_Window tests inclusive window bounds at one-minute resolution.
func TestExecuteCheckInMember_Window(t *testing.T) {
	tests := []struct {
		name   string
		now    string
		reason apperr.Reason
	}{
		{"one minute before opening", "08:29", apperr.ReasonTooEarly},
		{"at opening", "08:30", ""},
		{"at start", "09:00", ""},
		{"at closing", "09:15", ""},
		{"one minute after closing", "09:16", apperr.ReasonTooLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := admissionDeps(classSlot(10), newFakeCheckIns(), at(tt.now))
			_, err := ExecuteCheckInMember(context.Background(), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"}, deps)

			if tt.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindTimeWindow || ae.Reason != tt.reason {
				t.Fatalf("err = %v, want time window %s", err, tt.reason)
			}
			if ae.Offset != time.Minute {
				t.Errorf("Offset = %v, want 1m", ae.Offset)
			}
		})
	}
}

// TestExecuteCheckInMember_Location tests that the slot start is read in the studio timezone.
func TestExecuteCheckInMember_Location(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	deps := admissionDeps(classSlot(10), newFakeCheckIns(), at("11:50")) // 08:50 local
	deps.Location = loc
	if _, err := ExecuteCheckInMember(context.Background(), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"}, deps); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	deps = admissionDeps(classSlot(10), newFakeCheckIns(), at("08:50")) // 05:50 local
	deps.Location = loc
	_, err := ExecuteCheckInMember(context.Background(), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"}, deps)
	if !errors.Is(err, apperr.ErrTimeWindow) {
		t.Errorf("err = %v, want too early", err)
	}
}

// TestExecuteCheckInMember_Full tests the capacity bound.
func TestExecuteCheckInMember_Full(t *testing.T) {
	checkins := newFakeCheckIns(checkin.CheckIn{ID: "c0", TenantID: tenant, UserID: "u0", SlotID: "yoga-9"})
	_, err := ExecuteCheckInMember(context.Background(), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"},
		admissionDeps(classSlot(1), checkins, studioClock))

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Reason != apperr.ReasonFull {
		t.Fatalf("err = %v, want full", err)
	}
}

// TestExecuteCheckInMember_DuplicateWins tests that a member already holding a seat
// sees duplicate even once the window has closed or the class has filled.
func TestExecuteCheckInMember_DuplicateWins(t *testing.T) {
	for _, now := range []string{"08:50", "09:40"} {
		checkins := newFakeCheckIns(checkin.CheckIn{ID: "c0", TenantID: tenant, UserID: "u1", SlotID: "yoga-9"})
		_, err := ExecuteCheckInMember(context.Background(), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"},
			admissionDeps(classSlot(1), checkins, at(now)))
		if !errors.Is(err, apperr.ErrDuplicateCheckIn) {
			t.Errorf("at %s: err = %v, want duplicate", now, err)
		}
	}
}

// TestExecuteCheckInMember_AdminOnBehalf tests the admin attribution fields.
func TestExecuteCheckInMember_AdminOnBehalf(t *testing.T) {
	checkins := newFakeCheckIns()
	c, err := ExecuteCheckInMember(context.Background(),
		CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9", AdminID: "admin-7"},
		admissionDeps(classSlot(5), checkins, studioClock))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.CreatedByAdmin || c.AdminID != "admin-7" || c.ID != "ci-1" {
		t.Errorf("check-in = %+v", c)
	}
	if _, ok := checkins.rows["ci-1"]; !ok {
		t.Error("expected check-in to be persisted")
	}
}

// TestExecuteCheckInMember_NotFound tests unknown, inactive and foreign slots.
func TestExecuteCheckInMember_NotFound(t *testing.T) {
	inactive := classSlot(5)
	inactive.Active = false
	tests := []struct {
		name  string
		slot  slot.Slot
		input CheckInMemberInput
	}{
		{"unknown", classSlot(5), CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "nope"}},
		{"inactive", inactive, CheckInMemberInput{TenantID: tenant, UserID: "u1", SlotID: "yoga-9"}},
		{"other tenant", classSlot(5), CheckInMemberInput{TenantID: "t2", UserID: "u1", SlotID: "yoga-9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteCheckInMember(context.Background(), tt.input, admissionDeps(tt.slot, newFakeCheckIns(), studioClock))
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want not found", err)
			}
		})
	}
}

// TestExecuteCheckInMember_ConcurrentCapacity tests that racing admissions never overfill.
func TestExecuteCheckInMember_ConcurrentCapacity(t *testing.T) {
	checkins := newFakeCheckIns()
	deps := admissionDeps(classSlot(3), checkins, studioClock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ExecuteCheckInMember(context.Background(),
				CheckInMemberInput{TenantID: tenant, UserID: fmt.Sprintf("u%d", i), SlotID: "yoga-9"}, deps)
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != 3 {
		t.Errorf("admitted = %d, want 3", admitted)
	}
}

// TestExecuteCheckInPrecheck tests the advisory lookups.
func TestExecuteCheckInPrecheck(t *testing.T) {
	checkins := newFakeCheckIns()
	checkins.onDate["u1|2026-01-09"] = true
	checkins.onDate["u1|2026-01-09|yoga"] = true
	deps := PrecheckDeps{CheckInStore: checkins}

	tests := []struct {
		name  string
		input PrecheckInput
		want  PrecheckResult
	}{
		{"same modality", PrecheckInput{UserID: "u1", Date: "2026-01-09", ModalityID: "yoga"}, PrecheckResult{true, true}},
		{"other modality", PrecheckInput{UserID: "u1", Date: "2026-01-09", ModalityID: "spin"}, PrecheckResult{true, false}},
		{"no modality", PrecheckInput{UserID: "u1", Date: "2026-01-09"}, PrecheckResult{true, false}},
		{"nothing today", PrecheckInput{UserID: "u2", Date: "2026-01-09", ModalityID: "yoga"}, PrecheckResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.TenantID = tenant
			got, err := ExecuteCheckInPrecheck(context.Background(), tt.input, deps)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := ExecuteCheckInPrecheck(context.Background(), PrecheckInput{UserID: "u1", Date: "09/01/2026"}, deps); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad date: err = %v, want validation", err)
	}
}
