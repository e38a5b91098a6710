package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studio/internal/adapters/storage"
	"studio/internal/domain/apperr"
	domain "studio/internal/domain/calendar"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new calendar Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a tenant's day by ID.
// PRE: tenantID and id are non-empty
// POST: Returns the day or a not-found *apperr.Error
func (s *SQLiteStore) GetByID(ctx context.Context, tenantID, id string) (domain.Day, error) {
	var d domain.Day
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, date, active FROM day WHERE id = ? AND tenant_id = ?",
		id, tenantID,
	).Scan(&d.ID, &d.TenantID, &d.Date, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Day{}, apperr.NotFound("day %s not found", id)
	}
	if err != nil {
		return domain.Day{}, fmt.Errorf("get day: %w", err)
	}
	d.Active = active == 1
	return d, nil
}

// GetByDate retrieves a tenant's day by its calendar date.
// PRE: date is YYYY-MM-DD
// POST: Returns the day or a not-found *apperr.Error
func (s *SQLiteStore) GetByDate(ctx context.Context, tenantID, date string) (domain.Day, error) {
	var d domain.Day
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, date, active FROM day WHERE tenant_id = ? AND date = ?",
		tenantID, date,
	).Scan(&d.ID, &d.TenantID, &d.Date, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Day{}, apperr.NotFound("no day on %s", date)
	}
	if err != nil {
		return domain.Day{}, fmt.Errorf("get day by date: %w", err)
	}
	d.Active = active == 1
	return d, nil
}

// Save upserts a day by ID. A second ID for an existing (tenant, date) is rejected
// by the unique constraint, so callers look up GetByDate first.
// PRE: value has been validated
// POST: Day is persisted, or a conflict *apperr.Error when the date is taken
func (s *SQLiteStore) Save(ctx context.Context, value domain.Day) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO day (id, tenant_id, date, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active = excluded.active`,
		value.ID, value.TenantID, value.Date, storage.BoolToInt(value.Active),
	)
	if storage.IsUniqueViolation(err) {
		return apperr.Conflict("day %s already exists", value.Date)
	}
	if err != nil {
		return fmt.Errorf("save day: %w", err)
	}
	return nil
}

// ListActiveInRange returns active days with from <= date <= to, ordered by date.
// PRE: from and to are YYYY-MM-DD
// POST: Returns days in chronological order
func (s *SQLiteStore) ListActiveInRange(ctx context.Context, tenantID, from, to string) ([]domain.Day, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, date, active FROM day
		WHERE tenant_id = ? AND active = 1 AND date >= ? AND date <= ?
		ORDER BY date`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var results []domain.Day
	for rows.Next() {
		var d domain.Day
		var active int
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Date, &active); err != nil {
			return nil, err
		}
		d.Active = active == 1
		results = append(results, d)
	}
	return results, rows.Err()
}
