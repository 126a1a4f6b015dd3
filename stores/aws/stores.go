package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"storefront/core"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const keyPrefix = "stores/"

type storeRepository struct {
	s3Client *s3.Client
	bucket   string // Name of the S3 bucket
}

func NewStoreRepository(ctx context.Context, bucketName string) (core.StoreRepository, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg)
	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		return nil, fmt.Errorf("bucket %s is not reachable: %w", bucketName, err)
	}

	return &storeRepository{
		s3Client: s3Client,
		bucket:   bucketName,
	}, nil
}

func objectKey(id primitive.ObjectID) string {
	return keyPrefix + id.Hex() + ".json"
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	stores := []core.Store{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stores: %w", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			store, err := s.get(ctx, key)
			if err != nil {
				var noKey *types.NoSuchKey
				if errors.As(err, &noKey) {
					continue
				}
				return nil, err
			}
			if !store.IsDeleted {
				stores = append(stores, *store)
			}
		}
	}
	return stores, nil
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	store, err := s.get(ctx, objectKey(id))
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get store with id %s: %w", id.Hex(), err)
	}
	if store.IsDeleted {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}
	return store, nil
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, core.Now())
	if err := s.put(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to upload store: %w", err)
	}
	logrus.WithField("store_id", store.ID.Hex()).Info("Store created successfully")
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

func (s *storeRepository) mutate(ctx context.Context, id primitive.ObjectID, fn func(*core.Store)) (*core.Store, error) {
	store, err := s.FindID(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(store)
	store.Touch(core.Now())
	if err := s.put(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to upload store: %w", err)
	}
	return store, nil
}

func (s *storeRepository) get(ctx context.Context, key string) (*core.Store, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read store data: %w", err)
	}
	var store core.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &store, nil
}

func (s *storeRepository) put(ctx context.Context, store *core.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(store.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}
