package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planStore "studio/internal/adapters/storage/plan"
	"studio/internal/adapters/storage/storagetest"
	"studio/internal/domain/apperr"
	"studio/internal/domain/plan"
)

func TestSQLiteStore_Plans(t *testing.T) {
	store := planStore.NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	p := plan.Plan{ID: "p1", TenantID: "t1", ModalityID: "yoga", Name: "Monthly", Value: 100, DurationDays: 30}
	require.NoError(t, store.Save(ctx, p))

	got, err := store.GetByID(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = store.GetByID(ctx, "t2", "p1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
