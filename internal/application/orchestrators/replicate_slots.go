package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
	"studio/internal/domain/slot"
)

// ReplicationRule selects the target days of a replication.
type ReplicationRule string

const (
	RuleNextWeek  ReplicationRule = "next_week"
	RuleFullMonth ReplicationRule = "full_month"
	RuleCustom    ReplicationRule = "custom"
)

// DefaultReplicationWorkers bounds concurrent (slot, day) copies when Workers is unset.
const DefaultReplicationWorkers = 4

// lastCalendarDate is the open upper bound used when searching forward for next_week.
const lastCalendarDate = "9999-12-31"

// SlotStoreForReplication defines the slot store interface needed for replication.
type SlotStoreForReplication interface {
	ListActiveByDay(ctx context.Context, tenantID, dayID, modalityID string) ([]slot.Slot, error)
	FindOccupancy(ctx context.Context, q slotStore.OccupancyQuery) ([]slot.Slot, error)
	Create(ctx context.Context, value slot.Slot) error
}

// DayStoreForReplication defines the calendar interface needed to resolve target days.
type DayStoreForReplication interface {
	GetByID(ctx context.Context, tenantID, id string) (calendar.Day, error)
	ListActiveInRange(ctx context.Context, tenantID, from, to string) ([]calendar.Day, error)
}

// ReplicateSlotsInput carries input for the replication orchestrator.
type ReplicateSlotsInput struct {
	TenantID    string
	SourceDayID string
	Rule        ReplicationRule
	Weekdays    []int  // 0 = Sunday
	Month       string // YYYY-MM
	ModalityID  string // optional filter on source slots
}

// ReplicateSlotsDeps holds dependencies for ReplicateSlots.
type ReplicateSlotsDeps struct {
	SlotStore  SlotStoreForReplication
	DayStore   DayStoreForReplication
	Location   *time.Location // studio timezone; nil means UTC
	Workers    int
	GenerateID func() string
	Now        func() time.Time
}

// SlotReplication reports the outcome for one source slot.
type SlotReplication struct {
	SlotID       string
	StartTime    string
	EndTime      string
	CreatedDates []string
	Skipped      int
	Failed       int
}

// ReplicateSlotsResult carries global totals and per-slot detail in source order.
type ReplicateSlotsResult struct {
	Created int
	Skipped int
	Failed  int
	PerSlot []SlotReplication
}

// ExecuteReplicateSlots copies a day's active slots onto the days selected by the rule.
// Collisions on a target day are skipped; other per-pair errors are counted as failed
// and do not stop the batch.
// PRE: SourceDayID refers to an active day of TenantID
// POST: Created + Skipped + Failed == len(source slots) * len(target days)
// INVARIANT: Running the same replication twice creates nothing the second time
func ExecuteReplicateSlots(ctx context.Context, input ReplicateSlotsInput, deps ReplicateSlotsDeps) (ReplicateSlotsResult, error) {
	source, err := requireActiveDay(ctx, deps.DayStore, input.TenantID, input.SourceDayID)
	if err != nil {
		return ReplicateSlotsResult{}, err
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	today := now(deps.Now).In(loc).Format(calendar.DateLayout)

	targets, err := resolveTargetDays(ctx, deps.DayStore, source, input, today)
	if err != nil {
		return ReplicateSlotsResult{}, err
	}

	slots, err := deps.SlotStore.ListActiveByDay(ctx, input.TenantID, source.ID, input.ModalityID)
	if err != nil {
		return ReplicateSlotsResult{}, fmt.Errorf("list source slots: %w", err)
	}

	perSlot := make(map[string]*SlotReplication, len(slots))
	for _, s := range slots {
		perSlot[s.ID] = &SlotReplication{SlotID: s.ID, StartTime: s.StartTime, EndTime: s.EndTime}
	}

	var created, skipped, failed atomic.Int64
	var mu sync.Mutex
	record := func(src slot.Slot, date string, outcome error) {
		mu.Lock()
		defer mu.Unlock()
		r := perSlot[src.ID]
		switch {
		case outcome == nil:
			r.CreatedDates = append(r.CreatedDates, date)
		case isConflict(outcome):
			r.Skipped++
		default:
			r.Failed++
		}
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultReplicationWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, day := range targets {
		for _, src := range slots {
			g.Go(func() error {
				err := copySlot(gctx, deps, src, day)
				switch {
				case err == nil:
					created.Add(1)
				case isConflict(err):
					skipped.Add(1)
				default:
					failed.Add(1)
					slog.Warn("replication_pair_failed", "tenant_id", input.TenantID,
						"slot_id", src.ID, "target_day_id", day.ID, "error", err.Error())
				}
				record(src, day.Date, err)
				return nil
			})
		}
	}
	_ = g.Wait() // workers never return errors

	result := ReplicateSlotsResult{
		Created: int(created.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
		PerSlot: make([]SlotReplication, 0, len(slots)),
	}
	for _, s := range slots {
		r := *perSlot[s.ID]
		slices.Sort(r.CreatedDates)
		if r.CreatedDates == nil {
			r.CreatedDates = []string{}
		}
		result.PerSlot = append(result.PerSlot, r)
	}

	slog.Info("slot_event", "event", "replication_complete", "tenant_id", input.TenantID,
		"source_day_id", source.ID, "rule", input.Rule, "target_days", len(targets),
		"created", result.Created, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// copySlot creates src on day unless an active slot already holds the same range.
// A collision, found up front or raised by the insert, is returned as ConflictError.
func copySlot(ctx context.Context, deps ReplicateSlotsDeps, src slot.Slot, day calendar.Day) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := src
	c.ID = newID(deps.GenerateID)
	c.DayID = day.ID
	c.Active = true

	taken, err := deps.SlotStore.FindOccupancy(ctx, slotStore.OccupancyQuery{
		TenantID:  c.TenantID,
		DayID:     c.DayID,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
	})
	if err != nil {
		return err
	}
	if len(collisions(taken, c)) > 0 {
		return apperr.Conflict("slot %s-%s already exists on %s", c.StartTime, c.EndTime, day.Date)
	}

	c.CreatedAt = now(deps.Now)
	return deps.SlotStore.Create(ctx, c)
}

// resolveTargetDays maps a rule onto active days, excluding the source and the past,
// deduplicated and in date order.
func resolveTargetDays(ctx context.Context, days DayStoreForReplication, source calendar.Day, input ReplicateSlotsInput, today string) ([]calendar.Day, error) {
	weekdays, err := weekdaySet(input.Weekdays)
	if err != nil {
		return nil, err
	}

	var from, to string
	switch input.Rule {
	case RuleNextWeek:
		from = source.Time(time.UTC).AddDate(0, 0, 1).Format(calendar.DateLayout)
		to = lastCalendarDate
		weekdays = map[time.Weekday]bool{source.Weekday(): true}
	case RuleFullMonth, RuleCustom:
		month := input.Month
		if input.Rule == RuleCustom && (month == "" || len(weekdays) == 0) {
			return nil, apperr.Validation("custom replication requires month and weekdays")
		}
		if month == "" {
			month = source.Month()
		}
		if len(weekdays) == 0 {
			weekdays = map[time.Weekday]bool{source.Weekday(): true}
		}
		start, err := time.Parse("2006-01", month)
		if err != nil {
			return nil, apperr.Validation("month %q must be YYYY-MM", month)
		}
		from = start.Format(calendar.DateLayout)
		to = start.AddDate(0, 1, -1).Format(calendar.DateLayout)
	default:
		return nil, apperr.Validation("unknown replication rule %q", input.Rule)
	}

	candidates, err := days.ListActiveInRange(ctx, source.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list target days: %w", err)
	}

	seen := make(map[string]bool, len(candidates))
	var out []calendar.Day
	for _, d := range candidates {
		if d.ID == source.ID || d.Date < today || seen[d.ID] || !weekdays[d.Weekday()] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
		if input.Rule == RuleNextWeek {
			break
		}
	}
	slices.SortFunc(out, func(a, b calendar.Day) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		}
		return 0
	})
	return out, nil
}

func weekdaySet(values []int) (map[time.Weekday]bool, error) {
	set := make(map[time.Weekday]bool, len(values))
	for _, v := range values {
		if v < 0 || v > 6 {
			return nil, apperr.Validation("weekday %d out of range 0-6", v)
		}
		set[time.Weekday(v)] = true
	}
	return set, nil
}
