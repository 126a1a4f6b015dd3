package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/core"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func storeDoc(id primitive.ObjectID, name string, created, updated time.Time, deleted bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "description", Value: "Hardware"},
		{Key: "created_at", Value: created},
		{Key: "updated_at", Value: updated},
		{Key: "is_deleted", Value: deleted},
	}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestStoreRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	written := created.Add(time.Minute)

	mt.Run("Create", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		store, err := repo.Create(ctx, core.NewStoreInput("Acme", "Hardware"))
		require.NoError(mt, err)
		assert.Len(mt, store.ID.Hex(), 24)
		assert.Equal(mt, store.CreatedAt, store.UpdatedAt)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
	})

	mt.Run("FindIDDecodesDocument", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			storeDoc(id, "Acme", created, created, false)))

		store, err := repo.FindID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, id, store.ID)
		assert.Equal(mt, "Acme", store.Name)
		assert.Equal(mt, time.UTC, store.CreatedAt.Location())
		assert.True(mt, created.Equal(store.CreatedAt))
	})

	mt.Run("FindIDNotFound", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindID(ctx, primitive.NewObjectID())
		assert.True(mt, errors.Is(err, core.ErrNotFound), "got %v", err)
	})

	mt.Run("FindIDFiltersDeleted", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		id := primitive.NewObjectID()
		_, err := repo.FindID(ctx, id)
		require.Error(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		filter := started.Command.Lookup("filter").Document()
		assert.Equal(mt, id, filter.Lookup("_id").ObjectID())
		assert.True(mt, filter.Lookup("is_deleted", "$ne").Boolean())
	})

	mt.Run("List", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			storeDoc(primitive.NewObjectID(), "A", created, created, false),
			storeDoc(primitive.NewObjectID(), "B", created, created, false)))

		stores, err := repo.List(ctx)
		require.NoError(mt, err)
		assert.Len(mt, stores, 2)
	})

	mt.Run("UpdateReturnsWrittenDocument", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				storeDoc(id, "Acme", created, created, false)),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: storeDoc(id, "Acme Co", created, written, false)},
			},
		)

		store, err := repo.Update(ctx, id, core.NewStoreInput("Acme Co", "Hardware"))
		require.NoError(mt, err)
		assert.Equal(mt, "Acme Co", store.Name)
		assert.True(mt, written.Equal(store.UpdatedAt))
		assert.True(mt, created.Equal(store.CreatedAt))

		mt.GetStartedEvent()
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		assert.True(mt, started.Command.Lookup("new").Boolean())
	})

	mt.Run("UpdateVanished", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				storeDoc(id, "Acme", created, created, false)),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
		)

		_, err := repo.Update(ctx, id, core.NewStoreInput("Acme Co", "Hardware"))
		assert.True(mt, errors.Is(err, core.ErrNotFound), "got %v", err)
	})

	mt.Run("Delete", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				storeDoc(id, "Acme", created, created, false)),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: storeDoc(id, "Acme", created, written, true)},
			},
		)

		store, err := repo.Delete(ctx, id)
		require.NoError(mt, err)
		assert.True(mt, store.IsDeleted)
		assert.True(mt, store.UpdatedAt.After(store.CreatedAt))
	})

	mt.Run("DeleteMissing", func(mt *mtest.T) {
		repo := newStoreRepository(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.Delete(ctx, primitive.NewObjectID())
		assert.True(mt, errors.Is(err, core.ErrNotFound), "got %v", err)
	})
}

func TestDisconnectLogsFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	require.NoError(t, client.Disconnect(context.Background()))

	disconnect(client)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Failed to disconnect from mongodb", entry.Message)
	assert.ErrorIs(t, entry.Data["error"].(error), mongo.ErrClientDisconnected)
}
