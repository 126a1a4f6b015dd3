// Package storetest holds behaviour checks shared by every core.StoreRepository
// backend that can run inside a unit test.
package storetest

import (
	"context"
	"errors"
	"testing"

	"storefront/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Run(t *testing.T, open func(t *testing.T) core.StoreRepository) {
	t.Run("CreateAssignsIdentity", func(t *testing.T) {
		repo := open(t)
		store, err := repo.Create(context.Background(), core.NewStoreInput("Acme", "Hardware"))
		require.NoError(t, err)

		assert.Len(t, store.ID.Hex(), 24)
		assert.Equal(t, "Acme", store.Name)
		assert.Equal(t, "Hardware", store.Description)
		assert.Equal(t, store.CreatedAt, store.UpdatedAt)
		assert.False(t, store.IsDeleted)
	})

	t.Run("FindID", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		created, err := repo.Create(ctx, core.NewStoreInput("Acme", ""))
		require.NoError(t, err)

		found, err := repo.FindID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "", found.Description)
		assert.True(t, created.CreatedAt.Equal(found.CreatedAt))

		_, err = repo.FindID(ctx, primitive.NilObjectID)
		assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
	})

	t.Run("ListReturnsCreated", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		ids := map[primitive.ObjectID]bool{}
		for _, name := range []string{"A", "B", "C"} {
			store, err := repo.Create(ctx, core.NewStoreInput(name, "B"))
			require.NoError(t, err)
			ids[store.ID] = true
		}

		stores, err := repo.List(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(stores), 3)
		for _, store := range stores {
			delete(ids, store.ID)
		}
		assert.Empty(t, ids)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		stores, err := open(t).List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, stores)
		assert.Empty(t, stores)
	})

	t.Run("UpdateRefreshesUpdatedAt", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		created, err := repo.Create(ctx, core.NewStoreInput("Acme", "Hardware"))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, created.ID, core.NewStoreInput("Acme Co", "Hardware"))
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Acme Co", updated.Name)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		found, err := repo.FindID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Co", found.Name)
		assert.True(t, found.UpdatedAt.Equal(updated.UpdatedAt))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		_, err := open(t).Update(context.Background(), primitive.NewObjectID(), core.NewStoreInput("a", "b"))
		assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
	})

	t.Run("DeleteHidesRecord", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		kept, err := repo.Create(ctx, core.NewStoreInput("kept", ""))
		require.NoError(t, err)
		gone, err := repo.Create(ctx, core.NewStoreInput("gone", ""))
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, gone.ID)
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted)
		assert.True(t, deleted.UpdatedAt.After(gone.UpdatedAt))

		_, err = repo.FindID(ctx, gone.ID)
		assert.True(t, errors.Is(err, core.ErrNotFound))
		_, err = repo.Update(ctx, gone.ID, core.NewStoreInput("x", "y"))
		assert.True(t, errors.Is(err, core.ErrNotFound))
		_, err = repo.Delete(ctx, gone.ID)
		assert.True(t, errors.Is(err, core.ErrNotFound))

		stores, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, stores, 1)
		assert.Equal(t, kept.ID, stores[0].ID)
	})
}
