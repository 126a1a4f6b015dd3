package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound   = errors.New("store not found")
	ErrInvalidID  = errors.New("invalid store id")
	ErrValidation = errors.New("validation failed")
)

// Store event names published on the change feed.
const (
	EventStoreCreated = "store-created"
	EventStoreUpdated = "store-updated"
	EventStoreDeleted = "store-deleted"
)

type (
	// Store is the stored view of a store record. Storage tags carry the
	// internal snake_case names; the JSON form is produced by the codec in
	// schema.go.
	Store struct {
		ID          primitive.ObjectID `bson:"_id"`
		Name        string             `bson:"name"`
		Description string             `bson:"description"`
		CreatedAt   time.Time          `bson:"created_at"`
		UpdatedAt   time.Time          `bson:"updated_at"`
		IsDeleted   bool               `bson:"is_deleted"`
	}

	// StoreInput is the caller-editable subset of a Store. A nil field was
	// absent from the request.
	StoreInput struct {
		Name        *string `json:"name" validate:"required"`
		Description *string `json:"description" validate:"required"`
	}

	StoreRepository interface {
		List(ctx context.Context) ([]Store, error)
		FindID(ctx context.Context, id primitive.ObjectID) (*Store, error)
		Create(ctx context.Context, input StoreInput) (*Store, error)
		Update(ctx context.Context, id primitive.ObjectID, input StoreInput) (*Store, error)
		Delete(ctx context.Context, id primitive.ObjectID) (*Store, error)
		Close(ctx context.Context) error
	}

	StorePublisher interface {
		Publish(event string, store *Store)
	}
)

func NewStoreInput(name, description string) StoreInput {
	return StoreInput{Name: &name, Description: &description}
}

// NewStore builds a record for input with a fresh id and both timestamps set
// to now.
func NewStore(input StoreInput, now time.Time) *Store {
	store := &Store{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.Apply(store)
	return store
}

// Apply overwrites the caller-editable fields of store with the fields
// present in input.
func (input StoreInput) Apply(store *Store) {
	if input.Name != nil {
		store.Name = *input.Name
	}
	if input.Description != nil {
		store.Description = *input.Description
	}
}

// Touch refreshes UpdatedAt so that it is strictly after its previous value.
func (s *Store) Touch(now time.Time) {
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Millisecond)
	}
	s.UpdatedAt = now
}

// Now returns the current time at the precision every backend can store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}
