package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"storefront/core"
	"storefront/stores/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.StoreRepository {
		repo, err := NewStoreRepository(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close(context.Background()) })
		return repo
	})
}

func TestStoresSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "stores.db")

	repo, err := NewStoreRepository(ctx, dsn)
	require.NoError(t, err)
	created, err := repo.Create(ctx, core.NewStoreInput("Acme", "Hardware"))
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx))

	repo, err = NewStoreRepository(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close(ctx)

	found, err := repo.FindID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", found.Name)
	assert.True(t, created.UpdatedAt.Equal(found.UpdatedAt))
}
