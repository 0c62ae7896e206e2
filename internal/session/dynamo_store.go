package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type credentialItem struct {
	Key        string `dynamodbav:"key"`
	Credential string `dynamodbav:"credential"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
	ExpiresAt  int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoStore keeps the credential as one item keyed on "key". Table TTL
// should be enabled on expiresAt; expired items are ignored on Load until
// DynamoDB removes them.
type DynamoStore struct {
	client DynamoAPI
	table  string
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewDynamoStore stores under namespace:StorageKey. A zero ttl never expires.
func NewDynamoStore(client DynamoAPI, table, namespace string, ttl time.Duration) (*DynamoStore, error) {
	if client == nil {
		return nil, errors.New("session: dynamodb client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("session: dynamodb table required")
	}
	key := StorageKey
	if namespace = strings.TrimSpace(namespace); namespace != "" {
		key = namespace + ":" + StorageKey
	}
	return &DynamoStore{client: client, table: table, key: key, ttl: ttl, now: time.Now}, nil
}

func (s *DynamoStore) keyAttr() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: s.key}}
}

func (s *DynamoStore) Load(ctx context.Context) (string, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.keyAttr(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("session: dynamodb get: %w", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}
	var item credentialItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, fmt.Errorf("session: dynamodb decode: %w", err)
	}
	if item.ExpiresAt > 0 && s.now().Unix() >= item.ExpiresAt {
		return "", false, nil
	}
	return item.Credential, item.Credential != "", nil
}

func (s *DynamoStore) Save(ctx context.Context, credential string) error {
	now := s.now().UTC()
	item := credentialItem{Key: s.key, Credential: credential, UpdatedAt: now.Format(time.RFC3339)}
	if s.ttl > 0 {
		item.ExpiresAt = now.Add(s.ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("session: dynamodb encode: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av}); err != nil {
		return fmt.Errorf("session: dynamodb put: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: s.keyAttr()}); err != nil {
		return fmt.Errorf("session: dynamodb delete: %w", err)
	}
	return nil
}
