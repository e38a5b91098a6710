package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/internal/adapters/storage"
	"studio/internal/domain/apperr"
	domain "studio/internal/domain/checkin"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new check-in Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a tenant's check-in by ID.
// PRE: tenantID and id are non-empty
// POST: Returns the check-in or a not-found *apperr.Error
func (s *SQLiteStore) GetByID(ctx context.Context, tenantID, id string) (domain.CheckIn, error) {
	var c domain.CheckIn
	var byAdmin int
	var adminID sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, slot_id, created_by_admin, admin_id, created_at
		FROM checkin WHERE id = ? AND tenant_id = ?`, id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.UserID, &c.SlotID, &byAdmin, &adminID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CheckIn{}, apperr.NotFound("check-in %s not found", id)
	}
	if err != nil {
		return domain.CheckIn{}, fmt.Errorf("get check-in: %w", err)
	}
	c.CreatedByAdmin = byAdmin == 1
	c.AdminID = adminID.String
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.CheckIn{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return c, nil
}

// Admit inserts the check-in only while the slot holds fewer than capacity rows.
// The count and the insert run as one statement, so concurrent admissions for
// different members cannot push the slot past capacity.
// PRE: value has been validated; capacity >= 1
// POST: Row inserted, or *apperr.Error of kind duplicate_checkin / capacity_exceeded
func (s *SQLiteStore) Admit(ctx context.Context, value domain.CheckIn, capacity int) error {
	var adminID any
	if value.AdminID != "" {
		adminID = value.AdminID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checkin (id, tenant_id, user_id, slot_id, created_by_admin, admin_id, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM checkin WHERE slot_id = ?) < ?`,
		value.ID,
		value.TenantID,
		value.UserID,
		value.SlotID,
		storage.BoolToInt(value.CreatedByAdmin),
		adminID,
		value.CreatedAt.UTC().Format(time.RFC3339Nano),
		value.SlotID,
		capacity,
	)
	if storage.IsUniqueViolation(err) {
		return apperr.DuplicateCheckIn()
	}
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Nothing inserted: the slot is full, unless this member already holds a seat.
		exists, err := s.Exists(ctx, value.UserID, value.SlotID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.DuplicateCheckIn()
		}
		return apperr.CapacityExceeded(capacity, capacity)
	}
	return nil
}

// Delete removes a check-in (administrative override).
// PRE: tenantID and id are non-empty
// POST: Row removed or a not-found *apperr.Error
func (s *SQLiteStore) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM checkin WHERE id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete check-in: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("check-in %s not found", id)
	}
	return nil
}

// CountBySlot returns the live occupancy of a slot.
// PRE: slotID is non-empty
// POST: Returns count >= 0
func (s *SQLiteStore) CountBySlot(ctx context.Context, slotID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkin WHERE slot_id = ?", slotID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return n, nil
}

// CountBySlots returns occupancy for several slots at once. Slots without rows are absent.
// PRE: none
// POST: Returns slot ID -> count
func (s *SQLiteStore) CountBySlots(ctx context.Context, slotIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}
	placeholders := make([]string, len(slotIDs))
	args := make([]any, len(slotIDs))
	for i, id := range slotIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT slot_id, COUNT(*) FROM checkin WHERE slot_id IN (%s) GROUP BY slot_id",
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Exists reports whether the member already holds a check-in for the slot.
func (s *SQLiteStore) Exists(ctx context.Context, userID, slotID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checkin WHERE user_id = ? AND slot_id = ?", userID, slotID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check existing check-in: %w", err)
	}
	return n > 0, nil
}

// ExistsOnDate reports whether the member checked in to any class on q.Date,
// restricted to q.ModalityID when set.
// PRE: q.TenantID, q.UserID, q.Date are non-empty
func (s *SQLiteStore) ExistsOnDate(ctx context.Context, q DateQuery) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkin c
		JOIN slot s ON s.id = c.slot_id
		JOIN day d ON d.id = s.day_id
		WHERE c.tenant_id = ? AND c.user_id = ? AND d.date = ? AND (? = '' OR s.modality_id = ?)`,
		q.TenantID, q.UserID, q.Date, q.ModalityID, q.ModalityID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check check-ins on date: %w", err)
	}
	return n > 0, nil
}
