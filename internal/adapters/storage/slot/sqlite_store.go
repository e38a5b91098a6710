package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studio/internal/adapters/storage"
	"studio/internal/domain/apperr"
	domain "studio/internal/domain/slot"
)

const slotColumns = "id, tenant_id, modality_id, instructor_id, day_id, start_time, end_time, capacity, tolerance_before, tolerance_after, active, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new slot Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner) (domain.Slot, error) {
	var s domain.Slot
	var active int
	var createdAt string
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.ModalityID,
		&s.InstructorID,
		&s.DayID,
		&s.StartTime,
		&s.EndTime,
		&s.Capacity,
		&s.ToleranceBefore,
		&s.ToleranceAfter,
		&active,
		&createdAt,
	)
	if err != nil {
		return domain.Slot{}, err
	}
	s.Active = active == 1
	s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Slot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sl)
	}
	return results, rows.Err()
}

// GetByID retrieves a tenant's slot, active or not.
// PRE: tenantID and id are non-empty
// POST: Returns the slot or a not-found *apperr.Error
func (s *SQLiteStore) GetByID(ctx context.Context, tenantID, id string) (domain.Slot, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+slotColumns+" FROM slot WHERE id = ? AND tenant_id = ?", id, tenantID)
	sl, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Slot{}, apperr.NotFound("class %s not found", id)
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

// Create inserts a new slot.
// PRE: value has been validated
// POST: Slot persisted, or a conflict *apperr.Error if an active slot holds the same range
func (s *SQLiteStore) Create(ctx context.Context, value domain.Slot) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO slot ("+slotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		value.ID,
		value.TenantID,
		value.ModalityID,
		value.InstructorID,
		value.DayID,
		value.StartTime,
		value.EndTime,
		value.Capacity,
		value.ToleranceBefore,
		value.ToleranceAfter,
		storage.BoolToInt(value.Active),
		value.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if storage.IsUniqueViolation(err) {
		return apperr.Conflict("a class already runs %s-%s on this day", value.StartTime, value.EndTime)
	}
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// Update rewrites a slot's mutable fields. The capacity is re-checked against live
// occupancy in the same statement, so a concurrent admission cannot leave the slot
// over capacity.
// PRE: value has been validated and exists
// POST: Slot updated, or a conflict *apperr.Error on a range collision or when
// capacity is below the current check-in count
func (s *SQLiteStore) Update(ctx context.Context, value domain.Slot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE slot SET modality_id = ?, instructor_id = ?, day_id = ?, start_time = ?, end_time = ?,
			capacity = ?, tolerance_before = ?, tolerance_after = ?, active = ?
		WHERE id = ? AND tenant_id = ? AND (SELECT COUNT(*) FROM checkin WHERE slot_id = ?) <= ?`,
		value.ModalityID,
		value.InstructorID,
		value.DayID,
		value.StartTime,
		value.EndTime,
		value.Capacity,
		value.ToleranceBefore,
		value.ToleranceAfter,
		storage.BoolToInt(value.Active),
		value.ID,
		value.TenantID,
		value.ID,
		value.Capacity,
	)
	if storage.IsUniqueViolation(err) {
		return apperr.Conflict("a class already runs %s-%s on this day", value.StartTime, value.EndTime)
	}
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Nothing updated: the slot is missing, or it holds more check-ins than value.Capacity.
		if _, err := s.GetByID(ctx, value.TenantID, value.ID); err != nil {
			return err
		}
		return apperr.Conflict("capacity %d is below the members already checked in", value.Capacity)
	}
	return nil
}

// Deactivate retires a slot. Slots are never hard-deleted.
// PRE: tenantID and id are non-empty
// POST: active = 0
func (s *SQLiteStore) Deactivate(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE slot SET active = 0 WHERE id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return fmt.Errorf("deactivate slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("class %s not found", id)
	}
	return nil
}

// FindOccupancy returns active slots holding exactly the queried range.
// PRE: q has tenant, day, start and end set
// POST: Returns colliding slots, excluding q.ExcludeID
func (s *SQLiteStore) FindOccupancy(ctx context.Context, q OccupancyQuery) ([]domain.Slot, error) {
	results, err := s.list(ctx,
		`SELECT `+slotColumns+` FROM slot
		WHERE tenant_id = ? AND day_id = ? AND start_time = ? AND end_time = ? AND active = 1 AND id != ?`,
		q.TenantID, q.DayID, q.StartTime, q.EndTime, q.ExcludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("find occupancy: %w", err)
	}
	return results, nil
}

// ListActiveByDay returns a day's active slots ordered by time, optionally for one modality.
// PRE: tenantID and dayID are non-empty; modalityID may be empty
// POST: Returns slots ordered by start_time, end_time, id
func (s *SQLiteStore) ListActiveByDay(ctx context.Context, tenantID, dayID, modalityID string) ([]domain.Slot, error) {
	results, err := s.list(ctx,
		`SELECT `+slotColumns+` FROM slot
		WHERE tenant_id = ? AND day_id = ? AND active = 1 AND (? = '' OR modality_id = ?)
		ORDER BY start_time, end_time, id`,
		tenantID, dayID, modalityID, modalityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return results, nil
}
