package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enrollmentStore "studio/internal/adapters/storage/enrollment"
	planStore "studio/internal/adapters/storage/plan"
	"studio/internal/adapters/storage/storagetest"
	"studio/internal/domain/apperr"
	"studio/internal/domain/enrollment"
	"studio/internal/domain/plan"
)

var created = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *enrollmentStore.SQLiteStore {
	t.Helper()
	db := storagetest.Open(t)
	plans := planStore.NewSQLiteStore(db)
	ctx := context.Background()
	require.NoError(t, plans.Save(ctx, plan.Plan{ID: "yoga-monthly", TenantID: "t1", ModalityID: "yoga", Value: 100, DurationDays: 30}))
	require.NoError(t, plans.Save(ctx, plan.Plan{ID: "spin-monthly", TenantID: "t1", ModalityID: "spin", Value: 80, DurationDays: 30}))
	require.NoError(t, plans.Save(ctx, plan.Plan{ID: "other", TenantID: "t2", ModalityID: "yoga", Value: 90, DurationDays: 30}))
	return enrollmentStore.NewSQLiteStore(db)
}

func enr(id, tenant, user, planID string, status enrollment.Status) enrollment.Enrollment {
	return enrollment.Enrollment{
		ID: id, TenantID: tenant, UserID: user, PlanID: planID, Status: status,
		EnrollmentDate: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC), CreatedAt: created,
	}
}

func TestSQLiteStore_SaveDerivesModality(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, enr("e1", "t1", "u1", "spin-monthly", enrollment.StatusActive)))

	got, err := store.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "spin", got.ModalityID)
	assert.Equal(t, enrollment.StatusActive, got.Status)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSQLiteStore_ListOpen(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, enr("e1", "t1", "u1", "yoga-monthly", enrollment.StatusActive)))
	require.NoError(t, store.Save(ctx, enr("e2", "t1", "u1", "yoga-monthly", enrollment.StatusPending)))
	require.NoError(t, store.Save(ctx, enr("e3", "t1", "u1", "yoga-monthly", enrollment.StatusExpired)))
	require.NoError(t, store.Save(ctx, enr("e4", "t2", "u9", "other", enrollment.StatusActive)))

	tenant, err := store.ListOpen(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, tenant, 2)

	global, err := store.ListOpen(ctx, "")
	require.NoError(t, err)
	assert.Len(t, global, 3)
}

func TestSQLiteStore_CancelGroup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, enr("e1", "t1", "u1", "yoga-monthly", enrollment.StatusActive)))
	require.NoError(t, store.Save(ctx, enr("e2", "t1", "u1", "yoga-monthly", enrollment.StatusPending)))

	require.NoError(t, store.CancelGroup(ctx, []string{"e2"}))
	got, err := store.GetByID(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCancelled, got.Status)
}

func TestSQLiteStore_CancelGroupIsAtomic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, enr("e1", "t1", "u1", "yoga-monthly", enrollment.StatusActive)))
	require.NoError(t, store.Save(ctx, enr("e2", "t1", "u1", "yoga-monthly", enrollment.StatusExpired)))

	// e2 is not open, so the whole group must roll back, leaving e1 active.
	assert.Error(t, store.CancelGroup(ctx, []string{"e1", "e2"}))
	got, err := store.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, got.Status)
}
