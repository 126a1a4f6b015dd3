package postgres

import (
	"context"
	"errors"
	"fmt"
	"storefront/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const schema = `CREATE TABLE IF NOT EXISTS stores (
	id CHAR(24) PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE
)`

const selectColumns = `SELECT id, name, description, created_at, updated_at, is_deleted FROM stores`

type storeRepository struct {
	pool *pgxpool.Pool
}

func NewStoreRepository(ctx context.Context, dsn string) (core.StoreRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create stores table: %w", err)
	}
	return &storeRepository{pool: pool}, nil
}

func scanStore(row pgx.Row) (*core.Store, error) {
	var (
		hex   string
		store core.Store
	)
	if err := row.Scan(&hex, &store.Name, &store.Description, &store.CreatedAt, &store.UpdatedAt, &store.IsDeleted); err != nil {
		return nil, err
	}
	id, err := core.ParseID(hex)
	if err != nil {
		return nil, err
	}
	store.ID = id
	store.CreatedAt = store.CreatedAt.UTC()
	store.UpdatedAt = store.UpdatedAt.UTC()
	return &store, nil
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE NOT is_deleted`)
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

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	return findID(ctx, s.pool, id, "")
}

func findID(ctx context.Context, q querier, id primitive.ObjectID, suffix string) (*core.Store, error) {
	log := logrus.WithField("store_id", id.Hex())

	store, err := scanStore(q.QueryRow(ctx, selectColumns+` WHERE id = $1 AND NOT is_deleted`+suffix, id.Hex()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stores (id, name, description, created_at, updated_at, is_deleted) VALUES ($1, $2, $3, $4, $5, $6)`,
		store.ID.Hex(), store.Name, store.Description, store.CreatedAt, store.UpdatedAt, store.IsDeleted)
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
	s.pool.Close()
	return nil
}

func (s *storeRepository) mutate(ctx context.Context, id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	store, err := findID(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	fn(store)
	store.Touch(core.Now())

	_, err = tx.Exec(ctx,
		`UPDATE stores SET name = $1, description = $2, updated_at = $3, is_deleted = $4 WHERE id = $5`,
		store.Name, store.Description, store.UpdatedAt, store.IsDeleted, id.Hex())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"store_id": id.Hex(),
			"error":    err,
		}).Error("Failed to update store")
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
