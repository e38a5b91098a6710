package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	checkinStore "studio/internal/adapters/storage/checkin"
	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/checkin"
	"studio/internal/domain/enrollment"
	"studio/internal/domain/plan"
	"studio/internal/domain/slot"
)

const tenant = "t1"

// studioClock is Friday 2026-01-09 08:50 UTC.
var studioClock = time.Date(2026, 1, 9, 8, 50, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

// sequentialIDs returns a goroutine-safe generator of id-1, id-2, ...
func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

// --- days ---

type fakeDays struct {
	days map[string]calendar.Day
}

func newFakeDays(days ...calendar.Day) *fakeDays {
	f := &fakeDays{days: make(map[string]calendar.Day)}
	for _, d := range days {
		if d.TenantID == "" {
			d.TenantID = tenant
		}
		f.days[d.ID] = d
	}
	return f
}

func (f *fakeDays) GetByID(_ context.Context, tenantID, id string) (calendar.Day, error) {
	d, ok := f.days[id]
	if !ok || d.TenantID != tenantID {
		return calendar.Day{}, apperr.NotFound("day %s not found", id)
	}
	return d, nil
}

func (f *fakeDays) ListActiveInRange(_ context.Context, tenantID, from, to string) ([]calendar.Day, error) {
	var out []calendar.Day
	for _, d := range f.days {
		if d.TenantID == tenantID && d.Active && d.Date >= from && d.Date <= to {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b calendar.Day) int {
		if a.Date < b.Date {
			return -1
		}
		return 1
	})
	return out, nil
}

// --- slots ---

type fakeSlots struct {
	mu      sync.Mutex
	slots   map[string]slot.Slot
	failDay string // Create on this day fails with an infrastructure error
	// raceDay makes Create report a collision even though FindOccupancy saw none.
	raceDay string
}

func newFakeSlots(slots ...slot.Slot) *fakeSlots {
	f := &fakeSlots{slots: make(map[string]slot.Slot)}
	for _, s := range slots {
		f.slots[s.ID] = s
	}
	return f
}

func (f *fakeSlots) GetByID(_ context.Context, tenantID, id string) (slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.TenantID != tenantID {
		return slot.Slot{}, apperr.NotFound("slot %s not found", id)
	}
	return s, nil
}

func (f *fakeSlots) collides(s slot.Slot) bool {
	for _, o := range f.slots {
		if o.ID != s.ID && o.Active && o.Collides(s) {
			return true
		}
	}
	return false
}

func (f *fakeSlots) Create(_ context.Context, s slot.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.DayID == f.failDay {
		return errors.New("disk I/O error")
	}
	if s.DayID == f.raceDay || f.collides(s) {
		return apperr.Conflict("slot collides")
	}
	f.slots[s.ID] = s
	return nil
}

func (f *fakeSlots) Update(_ context.Context, s slot.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[s.ID]; !ok {
		return apperr.NotFound("slot %s not found", s.ID)
	}
	if f.collides(s) {
		return apperr.Conflict("slot collides")
	}
	f.slots[s.ID] = s
	return nil
}

func (f *fakeSlots) Deactivate(_ context.Context, tenantID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.TenantID != tenantID {
		return apperr.NotFound("slot %s not found", id)
	}
	s.Active = false
	f.slots[id] = s
	return nil
}

func (f *fakeSlots) FindOccupancy(_ context.Context, q slotStore.OccupancyQuery) ([]slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []slot.Slot
	for _, s := range f.slots {
		if s.Active && s.ID != q.ExcludeID && s.TenantID == q.TenantID && s.DayID == q.DayID &&
			s.StartTime == q.StartTime && s.EndTime == q.EndTime {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSlots) ListActiveByDay(_ context.Context, tenantID, dayID, modalityID string) ([]slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []slot.Slot
	for _, s := range f.slots {
		if s.Active && s.TenantID == tenantID && s.DayID == dayID && (modalityID == "" || s.ModalityID == modalityID) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b slot.Slot) int {
		if a.StartTime != b.StartTime {
			if a.StartTime < b.StartTime {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (f *fakeSlots) activeOn(dayID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.slots {
		if s.Active && s.DayID == dayID {
			n++
		}
	}
	return n
}

// --- check-ins ---

type fakeCheckIns struct {
	mu   sync.Mutex
	rows map[string]checkin.CheckIn
	// onDate maps user|date and user|date|modality to true for ExistsOnDate.
	onDate map[string]bool
}

func newFakeCheckIns(rows ...checkin.CheckIn) *fakeCheckIns {
	f := &fakeCheckIns{rows: make(map[string]checkin.CheckIn), onDate: make(map[string]bool)}
	for _, c := range rows {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCheckIns) GetByID(_ context.Context, tenantID, id string) (checkin.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.TenantID != tenantID {
		return checkin.CheckIn{}, apperr.NotFound("check-in %s not found", id)
	}
	return c, nil
}

func (f *fakeCheckIns) Delete(_ context.Context, tenantID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; !ok || c.TenantID != tenantID {
		return apperr.NotFound("check-in %s not found", id)
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCheckIns) countLocked(slotID string) int {
	n := 0
	for _, c := range f.rows {
		if c.SlotID == slotID {
			n++
		}
	}
	return n
}

func (f *fakeCheckIns) existsLocked(userID, slotID string) bool {
	for _, c := range f.rows {
		if c.UserID == userID && c.SlotID == slotID {
			return true
		}
	}
	return false
}

func (f *fakeCheckIns) Admit(_ context.Context, c checkin.CheckIn, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsLocked(c.UserID, c.SlotID) {
		return apperr.DuplicateCheckIn()
	}
	if n := f.countLocked(c.SlotID); n >= capacity {
		return apperr.CapacityExceeded(n, capacity)
	}
	f.rows[c.ID] = c
	return nil
}

func (f *fakeCheckIns) CountBySlot(_ context.Context, slotID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(slotID), nil
}

func (f *fakeCheckIns) Exists(_ context.Context, userID, slotID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existsLocked(userID, slotID), nil
}

func (f *fakeCheckIns) ExistsOnDate(_ context.Context, q checkinStore.DateQuery) (bool, error) {
	key := q.UserID + "|" + q.Date
	if q.ModalityID != "" {
		key += "|" + q.ModalityID
	}
	return f.onDate[key], nil
}

// --- enrollments ---

type fakeEnrollments struct {
	open      []enrollment.Enrollment
	failOn    map[string]bool // CancelGroup fails when any id is listed
	cancelled []string
}

func (f *fakeEnrollments) ListOpen(_ context.Context, tenantID string) ([]enrollment.Enrollment, error) {
	var out []enrollment.Enrollment
	for _, e := range f.open {
		if e.Status.IsOpen() && (tenantID == "" || e.TenantID == tenantID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) CancelGroup(_ context.Context, ids []string) error {
	for _, id := range ids {
		if f.failOn[id] {
			return fmt.Errorf("cancel %s: database is locked", id)
		}
	}
	for _, id := range ids {
		for i := range f.open {
			if f.open[i].ID == id {
				f.open[i].Status = enrollment.StatusCancelled
			}
		}
	}
	f.cancelled = append(f.cancelled, ids...)
	return nil
}

// --- plans ---

type fakePlans map[string]plan.Plan

func (f fakePlans) GetByID(_ context.Context, tenantID, id string) (plan.Plan, error) {
	p, ok := f[id]
	if !ok || p.TenantID != tenantID {
		return plan.Plan{}, apperr.NotFound("plan %s not found", id)
	}
	return p, nil
}
