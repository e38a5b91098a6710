package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studio/internal/adapters/storage"
	"studio/internal/domain/apperr"
	domain "studio/internal/domain/enrollment"
)

const enrollmentSelect = `SELECT e.id, e.tenant_id, e.user_id, e.plan_id, p.modality_id, e.status,
	e.enrollment_date, e.created_at, e.has_payment
	FROM enrollment e JOIN plan p ON p.id = e.plan_id`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new enrollment Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row scanner) (domain.Enrollment, error) {
	var e domain.Enrollment
	var status, enrolledOn, createdAt string
	var hasPayment int
	if err := row.Scan(&e.ID, &e.TenantID, &e.UserID, &e.PlanID, &e.ModalityID,
		&status, &enrolledOn, &createdAt, &hasPayment); err != nil {
		return domain.Enrollment{}, err
	}
	var err error
	if e.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Enrollment{}, err
	}
	if e.EnrollmentDate, err = time.Parse("2006-01-02", enrolledOn); err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to parse enrollment_date: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	e.HasPayment = hasPayment == 1
	return e, nil
}

// GetByID retrieves an enrollment with its plan's modality.
// PRE: id is non-empty
// POST: Returns the enrollment or a not-found *apperr.Error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Enrollment, error) {
	e, err := scanEnrollment(s.db.QueryRowContext(ctx, enrollmentSelect+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Enrollment{}, apperr.NotFound("enrollment %s not found", id)
	}
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// Save upserts an enrollment. ModalityID is derived from the plan and not stored.
// PRE: value has been validated
// POST: Enrollment is persisted
func (s *SQLiteStore) Save(ctx context.Context, value domain.Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollment (id, tenant_id, user_id, plan_id, status, enrollment_date, created_at, has_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET plan_id = excluded.plan_id, status = excluded.status,
			enrollment_date = excluded.enrollment_date, has_payment = excluded.has_payment`,
		value.ID,
		value.TenantID,
		value.UserID,
		value.PlanID,
		string(value.Status),
		value.EnrollmentDate.Format("2006-01-02"),
		value.CreatedAt.UTC().Format(time.RFC3339Nano),
		storage.BoolToInt(value.HasPayment),
	)
	if err != nil {
		return fmt.Errorf("save enrollment: %w", err)
	}
	return nil
}

// ListOpen returns active and pending enrollments for a tenant, or for every tenant
// when tenantID is empty. Ordered by tenant, user, modality so groups are contiguous.
func (s *SQLiteStore) ListOpen(ctx context.Context, tenantID string) ([]domain.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		enrollmentSelect+` WHERE e.status IN ('active', 'pending') AND (? = '' OR e.tenant_id = ?)
		ORDER BY e.tenant_id, e.user_id, p.modality_id, e.id`,
		tenantID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list open enrollments: %w", err)
	}
	defer rows.Close()

	var results []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// CancelGroup cancels every listed enrollment in one transaction.
// If any row is no longer active/pending the whole group is rolled back.
// PRE: ids belong to one (user, modality) group
// POST: all listed rows cancelled, or none
func (s *SQLiteStore) CancelGroup(ctx context.Context, ids []string) error {
	return storage.InTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx,
				`UPDATE enrollment SET status = 'cancelled' WHERE id = ? AND status IN ('active', 'pending')`, id)
			if err != nil {
				return fmt.Errorf("cancel enrollment %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return fmt.Errorf("enrollment %s changed during reconciliation", id)
			}
		}
		return nil
	})
}
