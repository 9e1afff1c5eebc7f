package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-idp-security/internal/domain"
)

// DeliveryRepo stores verification delivery records.
// PK: delivery_id (ULID). GSI account_purpose-index: account_purpose + delivery_id,
// so the newest record per account and purpose sorts last.
type DeliveryRepo struct {
	client    API
	tableName string
}

func NewDeliveryRepo(client API, tableName string) *DeliveryRepo {
	return &DeliveryRepo{client: client, tableName: tableName}
}

// Create inserts a new record; it fails with ErrConflict if the id already exists.
func (r *DeliveryRepo) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	rec.AccountPurpose = domain.AccountPurposeKey(rec.AccountID, rec.Purpose)
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = rec.CreatedAt.Add(domain.DeliveryRetention).Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(delivery_id)"),
	})
	return conditionFailed(err, "delivery")
}

// Save writes rec only if the stored record is not archived and its send_attempts
// still equals expectedAttempts. A concurrent writer that got there first, or an
// archived record, makes this return ErrConflict.
func (r *DeliveryRepo) Save(ctx context.Context, rec *domain.DeliveryRecord, expectedAttempts int) error {
	rec.AccountPurpose = domain.AccountPurposeKey(rec.AccountID, rec.Purpose)
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("#n = :expected AND #a = :false"),
		ExpressionAttributeNames: map[string]string{"#n": fieldSendAttempts, "#a": fieldArchived},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.Itoa(expectedAttempts)},
			":false":    &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	return conditionFailed(err, "delivery")
}

func (r *DeliveryRepo) Get(ctx context.Context, deliveryID string) (*domain.DeliveryRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("delivery_id", deliveryID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("delivery not found: %w", domain.ErrNotFound)
	}
	var rec domain.DeliveryRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Latest returns the newest record for the account and purpose.
func (r *DeliveryRepo) Latest(ctx context.Context, accountID, purpose string) (*domain.DeliveryRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("account_purpose-index"),
		KeyConditionExpression: aws.String("account_purpose = :ap"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ap": &types.AttributeValueMemberS{Value: domain.AccountPurposeKey(accountID, purpose)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("delivery not found: %w", domain.ErrNotFound)
	}
	var rec domain.DeliveryRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
