package mongo

import (
	"context"
	"errors"
	"fmt"
	"storefront/core"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "StoresDB"

type storeRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStoreRepository connects to uri, verifies the server answers and
// registers the stores collection in database.
func NewStoreRepository(ctx context.Context, uri, database string) (core.StoreRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		disconnect(client)
		return nil, fmt.Errorf("failed to reach mongodb: %w", err)
	}

	collection := client.Database(database).Collection(collectionName)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_deleted", Value: 1}},
	})
	if err != nil {
		disconnect(client)
		return nil, fmt.Errorf("failed to register %s: %w", collectionName, err)
	}

	logrus.WithFields(logrus.Fields{
		"database":   database,
		"collection": collectionName,
	}).Info("Registered store collection")
	return newStoreRepository(client, collection), nil
}

func newStoreRepository(client *mongo.Client, collection *mongo.Collection) *storeRepository {
	return &storeRepository{client: client, collection: collection}
}

// disconnect releases a client whose setup failed.
func disconnect(client *mongo.Client) {
	if err := client.Disconnect(context.Background()); err != nil {
		logrus.WithField("error", err).Warn("Failed to disconnect from mongodb")
	}
}

func live(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"is_deleted": bson.M{"$ne": true}})
	if err != nil {
		logrus.WithField("error", err).Error("Failed to list stores")
		return nil, err
	}
	stores := []core.Store{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	log := logrus.WithField("store_id", id.Hex())
	log.Debug("Retrieving store by ID")

	var store core.Store
	err := s.collection.FindOne(ctx, live(id)).Decode(&store)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("Store with specified ID not found")
			return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve store")
		return nil, err
	}
	store.CreatedAt = store.CreatedAt.UTC()
	store.UpdatedAt = store.UpdatedAt.UTC()
	return &store, nil
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, core.Now())
	log := logrus.WithField("store_id", store.ID.Hex())

	if _, err := s.collection.InsertOne(ctx, store); err != nil {
		log.WithField("error", err).Error("Failed to create store")
		return nil, err
	}
	log.Info("Store created successfully")
	return store, nil
}

func (s *storeRepository) Update(ctx context.Context, id primitive.ObjectID, input core.StoreInput) (*core.Store, error) {
	return s.mutate(ctx, id, func(store *core.Store) {
		input.Apply(store)
	})
}

func (s *storeRepository) Delete(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	return s.mutate(ctx, id, func(store *core.Store) {
		store.IsDeleted = true
	})
}

func (s *storeRepository) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mutate writes the changed fields with $set and returns the document as
// stored after the write.
func (s *storeRepository) mutate(ctx context.Context, id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	store, err := s.FindID(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(store)
	store.Touch(core.Now())

	update := bson.M{"$set": bson.M{
		"name":        store.Name,
		"description": store.Description,
		"updated_at":  store.UpdatedAt,
		"is_deleted":  store.IsDeleted,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated core.Store
	err = s.collection.FindOneAndUpdate(ctx, live(id), update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
		}
		logrus.WithFields(logrus.Fields{
			"store_id": id.Hex(),
			"error":    err,
		}).Error("Failed to update store")
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	updated.UpdatedAt = updated.UpdatedAt.UTC()
	logrus.WithField("store_id", id.Hex()).Info("Store updated successfully")
	return &updated, nil
}
