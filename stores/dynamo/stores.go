package dynamo

import (
	"context"
	"errors"
	"fmt"
	"storefront/core"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// storeItem is the DynamoDB shape of a store; the key is the hex id.
type storeItem struct {
	ID          string    `dynamodbav:"id"`
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
	IsDeleted   bool      `dynamodbav:"is_deleted"`
}

func toItem(s *core.Store) storeItem {
	return storeItem{
		ID:          s.ID.Hex(),
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		IsDeleted:   s.IsDeleted,
	}
}

func (i storeItem) toStore() (*core.Store, error) {
	id, err := core.ParseID(i.ID)
	if err != nil {
		return nil, err
	}
	return &core.Store{
		ID:          id,
		Name:        i.Name,
		Description: i.Description,
		CreatedAt:   i.CreatedAt.UTC(),
		UpdatedAt:   i.UpdatedAt.UTC(),
		IsDeleted:   i.IsDeleted,
	}, nil
}

type storeRepository struct {
	svc   *dynamodb.Client
	table string
}

// NewStoreRepository connects to DynamoDB. A non-empty endpoint targets a
// local DynamoDB with static dummy credentials.
func NewStoreRepository(ctx context.Context, table, endpoint string) (core.StoreRepository, error) {
	var loadOpts []func(*config.LoadOptions) error
	if endpoint != "" {
		loadOpts = append(loadOpts,
			config.WithRegion("us-west-2"),
			config.WithCredentialsProvider(
				aws.NewCredentialsCache(
					credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
				),
			),
		)
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load SDK configuration: %w", err)
	}

	svc := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if err := ensureTableExists(ctx, svc, table); err != nil {
		return nil, fmt.Errorf("failed to ensure table exists: %w", err)
	}
	return &storeRepository{svc: svc, table: table}, nil
}

func ensureTableExists(ctx context.Context, svc *dynamodb.Client, table string) error {
	log := logrus.WithField("table", table)
	_, err := svc.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		log.Debug("DynamoDB table already exists")
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	log.Info("Creating DynamoDB table")
	_, err = svc.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	waiter := dynamodb.NewTableExistsWaiter(svc)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, time.Minute)
}

func (s *storeRepository) List(ctx context.Context) ([]core.Store, error) {
	paginator := dynamodb.NewScanPaginator(s.svc, &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("is_deleted = :false"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})

	stores := []core.Store{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan failed: %w", err)
		}
		var items []storeItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stores: %w", err)
		}
		for _, item := range items {
			store, err := item.toStore()
			if err != nil {
				return nil, err
			}
			stores = append(stores, *store)
		}
	}
	return stores, nil
}

func (s *storeRepository) FindID(ctx context.Context, id primitive.ObjectID) (*core.Store, error) {
	result, err := s.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id.Hex()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}

	var item storeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if item.IsDeleted {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}
	return item.toStore()
}

func (s *storeRepository) Create(ctx context.Context, input core.StoreInput) (*core.Store, error) {
	store := core.NewStore(input, core.Now())
	if err := s.put(ctx, store, "attribute_not_exists(id)"); err != nil {
		logrus.WithFields(logrus.Fields{
			"store_id": store.ID.Hex(),
			"error":    err,
		}).Error("Failed to create store")
		return nil, err
	}
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

// Close is a no-op: the SDK client holds no connection to release.
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

	err = s.put(ctx, store, "attribute_exists(id)")
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return nil, fmt.Errorf("store with id %s: %w", id.Hex(), core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s *storeRepository) put(ctx context.Context, store *core.Store, condition string) error {
	item, err := attributevalue.MarshalMap(toItem(store))
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String(condition),
	})
	return err
}
