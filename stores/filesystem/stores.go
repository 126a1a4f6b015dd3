package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"storefront/core"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const fileExt = ".json"

type storeRepository struct {
	basePath string // Directory where stores are kept, one JSON file each.
	mu       sync.Mutex
}

func NewStoreRepository(basePath string) (core.StoreRepository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &storeRepository{basePath: basePath}, nil
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.basePath, err)
	}

	stores := make([]core.Store, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		store, err := s.read(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !store.IsDeleted {
			stores = append(stores, *store)
		}
	}
	return stores, nil
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	filePath := s.path(id)
	log := logrus.WithField("store_id", id.Hex())

	log.WithField("file_path", filePath).Debug("Retrieving store by ID")
	store, err := s.read(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Store with specified ID not found")
			return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve store")
		return nil, err
	}
	if store.IsDeleted {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}
	return store, nil
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, core.Now())
	log := logrus.WithFields(logrus.Fields{
		"store_id":  store.ID.Hex(),
		"file_path": s.path(store.ID),
	})

	if err := s.write(store); err != nil {
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
	return nil
}

// mutate holds mu across the read-modify-write. Last write still wins.
func (s *storeRepository) mutate(ctx context.Context, id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.FindID(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(store)
	store.Touch(core.Now())
	if err := s.write(store); err != nil {
		logrus.WithFields(logrus.Fields{
			"store_id": id.Hex(),
			"error":    err,
		}).Error("Failed to update store")
		return nil, err
	}
	return store, nil
}

func (s *storeRepository) path(id primitive.ObjectID) string {
	return filepath.Join(s.basePath, id.Hex()+fileExt)
}

func (s *storeRepository) read(filePath string) (*core.Store, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var store core.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return &store, nil
}

// write replaces the file atomically through a temporary sibling.
func (s *storeRepository) write(store *core.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, ".store-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(store.ID))
}
