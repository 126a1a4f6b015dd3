package memory

import (
	"context"
	"fmt"
	"storefront/core"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Option func(*storeRepository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *storeRepository) {
		s.now = now
	}
}

type storeRepository struct {
	mu          sync.RWMutex
	savedStores map[primitive.ObjectID]core.Store
	now         func() time.Time
}

func NewStoreRepository(opts ...Option) core.StoreRepository {
	s := &storeRepository{
		savedStores: make(map[primitive.ObjectID]core.Store),
		now:         core.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]core.Store, 0, len(s.savedStores))
	for _, store := range s.savedStores {
		if !store.IsDeleted {
			stores = append(stores, store)
		}
	}
	return stores, nil
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.savedStores[id]; ok && !val.IsDeleted {
		return &val, nil
	}
	return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, s.now())

	s.mu.Lock()
	s.savedStores[store.ID] = *store
	s.mu.Unlock()

	logrus.WithField("store_id", store.ID.Hex()).Debug("Store created in memory")
	return store, nil
}

func (s *storeRepository) Update(ctx context.Context, id primitive.ObjectID, input core.StoreInput) (*core.Store, error) {
	return s.mutate(id, func(store *core.Store) {
		input.Apply(store)
	})
}

func (s *storeRepository) Delete(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	return s.mutate(id, func(store *core.Store) {
		store.IsDeleted = true
	})
}

func (s *storeRepository) Close(ctx context.Context) error {
	return nil
}

func (s *storeRepository) mutate(id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.savedStores[id]
	if !ok || store.IsDeleted {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}
	fn(&store)
	store.Touch(s.now())
	s.savedStores[id] = store
	return &store, nil
}
