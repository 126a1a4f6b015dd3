package stores

import (
	"context"
	"fmt"
	"storefront/config"
	"storefront/core"
	"storefront/stores/aws"
	"storefront/stores/dynamo"
	"storefront/stores/filesystem"
	"storefront/stores/memory"
	"storefront/stores/mongo"
	"storefront/stores/postgres"
	"storefront/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Open connects the backend selected by cfg.Type and prepares it to hold
// store records.
func Open(ctx context.Context, cfg config.StorageConfig) (core.StoreRepository, error) {
	var (
		repo core.StoreRepository
		err  error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case config.StorageMongo:
		storageField["database"] = cfg.MongoDatabase
		repo, err = mongo.NewStoreRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StorageFilesystem:
		storageField["basePath"] = cfg.LocalPath
		repo, err = filesystem.NewStoreRepository(cfg.LocalPath)
	case config.StorageSQLite:
		storageField["dataSourceName"] = cfg.DataSourceName
		repo, err = sqlite.NewStoreRepository(ctx, cfg.DataSourceName)
	case config.StoragePostgres:
		repo, err = postgres.NewStoreRepository(ctx, cfg.PostgresDSN)
	case config.StorageS3:
		storageField["bucketName"] = cfg.S3Bucket
		repo, err = aws.NewStoreRepository(ctx, cfg.S3Bucket)
	case config.StorageDynamo:
		storageField["table"] = cfg.DynamoTable
		repo, err = dynamo.NewStoreRepository(ctx, cfg.DynamoTable, cfg.DynamoEndpoint)
	case config.StorageMemory:
		repo = memory.NewStoreRepository()
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
	if err != nil {
		logrus.WithFields(storageField).WithError(err).Error("Failed to open storage")
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return repo, nil
}
