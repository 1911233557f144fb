package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/de-tools/cost-notifier/pkg/adapters"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/models/store"
	"github.com/de-tools/cost-notifier/pkg/store/invocation"
)

const partitionKey = "period_key"

type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoStore struct {
	client API
	table  string
}

func NewStore(client API, table string) (invocation.Store, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is nil")
	}
	if table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	return &dynamoStore{client: client, table: table}, nil
}

func NewClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

func (s *dynamoStore) GetRecord(ctx context.Context, periodKey string) (*domain.InvocationRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			partitionKey: &types.AttributeValueMemberS{Value: periodKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", periodKey, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var rec store.InvocationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item %s: %w", periodKey, err)
	}
	res, err := adapters.MapStoreInvocationToDomain(rec)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *dynamoStore) PutRecordIfAbsent(ctx context.Context, record domain.InvocationRecord) (bool, error) {
	item, err := attributevalue.MarshalMap(adapters.MapDomainInvocationToStore(record))
	if err != nil {
		return false, fmt.Errorf("marshal item %s: %w", record.PeriodKey, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": partitionKey,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("put item %s: %w", record.PeriodKey, err)
	}
	return true, nil
}
