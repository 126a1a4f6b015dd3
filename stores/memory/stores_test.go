package memory

import (
	"context"
	"testing"
	"time"

	"storefront/core"
	"storefront/stores/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.StoreRepository {
		return NewStoreRepository()
	})
}

func TestUpdateWithFrozenClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewStoreRepository(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	created, err := repo.Create(ctx, core.NewStoreInput("Acme", "Hardware"))
	require.NoError(t, err)
	assert.Equal(t, now, created.CreatedAt)

	first, err := repo.Update(ctx, created.ID, core.NewStoreInput("Acme Co", "Hardware"))
	require.NoError(t, err)
	second, err := repo.Update(ctx, created.ID, core.NewStoreInput("Acme Inc", "Hardware"))
	require.NoError(t, err)

	assert.Equal(t, now, second.CreatedAt)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestReturnedStoreIsACopy(t *testing.T) {
	repo := NewStoreRepository()
	ctx := context.Background()
	created, err := repo.Create(ctx, core.NewStoreInput("Acme", "Hardware"))
	require.NoError(t, err)

	created.Name = "mutated"
	found, err := repo.FindID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", found.Name)
}
