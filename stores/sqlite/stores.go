package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"storefront/core"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const schema = `CREATE TABLE IF NOT EXISTS stores (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0
);`

const selectColumns = `SELECT id, name, description, created_at, updated_at, is_deleted FROM stores`

type storeRepository struct {
	db *sql.DB
}

func NewStoreRepository(ctx context.Context, dataSourceName string) (core.StoreRepository, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stores table: %w", err)
	}
	return &storeRepository{db}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStore(row scanner) (*core.Store, error) {
	var (
		hex                  string
		createdAt, updatedAt int64
		store                core.Store
	)
	if err := row.Scan(&hex, &store.Name, &store.Description, &createdAt, &updatedAt, &store.IsDeleted); err != nil {
		return nil, err
	}
	id, err := core.ParseID(hex)
	if err != nil {
		return nil, err
	}
	store.ID = id
	store.CreatedAt = time.UnixMilli(createdAt).UTC()
	store.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &store, nil
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE is_deleted = 0`)
	if err != nil {
		logrus.WithField("error", err).Error("Failed to list stores")
		return nil, err
	}
	defer rows.Close()

	stores := []core.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}
	return stores, rows.Err()
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	return findID(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findID(ctx context.Context, q queryer, id primitive.ObjectID) (*core.Store, error) {
	log := logrus.WithField("store_id", id.Hex())
	log.Debug("Retrieving store by ID")

	store, err := scanStore(q.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND is_deleted = 0`, id.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Store with specified ID not found")
			return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve store")
		return nil, err
	}
	return store, nil
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, core.Now())
	log := logrus.WithField("store_id", store.ID.Hex())

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO stores (id, name, description, created_at, updated_at, is_deleted) VALUES (?, ?, ?, ?, ?, ?)",
		store.ID.Hex(), store.Name, store.Description,
		store.CreatedAt.UnixMilli(), store.UpdatedAt.UnixMilli(), store.IsDeleted)
	if err != nil {
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
	return s.db.Close()
}

func (s *storeRepository) mutate(ctx context.Context, id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	store, err := findID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	fn(store)
	store.Touch(core.Now())

	_, err = tx.ExecContext(ctx,
		"UPDATE stores SET name = ?, description = ?, updated_at = ?, is_deleted = ? WHERE id = ?",
		store.Name, store.Description, store.UpdatedAt.UnixMilli(), store.IsDeleted, id.Hex())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"store_id": id.Hex(),
			"error":    err,
		}).Error("Failed to update store")
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logrus.WithField("store_id", id.Hex()).Info("Store updated successfully")
	return store, nil
}
