package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studio/internal/adapters/storage"
	"studio/internal/domain/apperr"
	domain "studio/internal/domain/plan"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new plan Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a tenant's plan.
// PRE: tenantID and id are non-empty
// POST: Returns the plan or a not-found *apperr.Error
func (s *SQLiteStore) GetByID(ctx context.Context, tenantID, id string) (domain.Plan, error) {
	var p domain.Plan
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, modality_id, name, value, duration_days FROM plan WHERE id = ? AND tenant_id = ?",
		id, tenantID,
	).Scan(&p.ID, &p.TenantID, &p.ModalityID, &p.Name, &p.Value, &p.DurationDays)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Plan{}, apperr.NotFound("plan %s not found", id)
	}
	if err != nil {
		return domain.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// Save upserts a plan.
// PRE: value has been validated
// POST: Plan is persisted
func (s *SQLiteStore) Save(ctx context.Context, value domain.Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan (id, tenant_id, modality_id, name, value, duration_days) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET modality_id = excluded.modality_id, name = excluded.name,
			value = excluded.value, duration_days = excluded.duration_days`,
		value.ID, value.TenantID, value.ModalityID, value.Name, value.Value, value.DurationDays,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}
