package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-idp-security/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func TestDeliveryRepo_SaveRequiresExpectedAttemptsAndUnarchived(t *testing.T) {
	api := new(mockAPI)
	repo := NewDeliveryRepo(api, "deliveries")
	rec := &domain.DeliveryRecord{DeliveryID: "d1", AccountID: "a1", Purpose: "EmailSignIn", SendAttempts: 2}

	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		v, ok := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN)
		f, okf := in.ExpressionAttributeValues[":false"].(*types.AttributeValueMemberBOOL)
		return ok && okf && v.Value == "1" && !f.Value &&
			*in.ConditionExpression == "#n = :expected AND #a = :false" &&
			in.ExpressionAttributeNames["#n"] == "send_attempts" &&
			in.ExpressionAttributeNames["#a"] == "archived"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	require.NoError(t, repo.Save(context.Background(), rec, 1))
	assert.Equal(t, "a1#EmailSignIn", rec.AccountPurpose)
	api.AssertExpectations(t)
}

func TestDeliveryRepo_SaveConflict(t *testing.T) {
	api := new(mockAPI)
	repo := NewDeliveryRepo(api, "deliveries")
	api.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.Save(context.Background(), &domain.DeliveryRecord{DeliveryID: "d1"}, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeliveryRepo_CreateSetsRetention(t *testing.T) {
	api := new(mockAPI)
	repo := NewDeliveryRepo(api, "deliveries")
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.ConditionExpression == "attribute_not_exists(delivery_id)"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	rec := &domain.DeliveryRecord{DeliveryID: "d1", AccountID: "a1", Purpose: "EmailConfirmation", CreatedAt: created}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, created.Add(24*time.Hour).Unix(), rec.ExpiresAt)
}

func TestDeliveryRepo_LatestQueriesNewestFirst(t *testing.T) {
	api := new(mockAPI)
	repo := NewDeliveryRepo(api, "deliveries")
	item, err := attributevalue.MarshalMap(domain.DeliveryRecord{DeliveryID: "d9", AccountID: "a1", Purpose: "EmailSignIn"})
	require.NoError(t, err)

	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v := in.ExpressionAttributeValues[":ap"].(*types.AttributeValueMemberS)
		return !*in.ScanIndexForward && *in.Limit == 1 && v.Value == "a1#EmailSignIn"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	rec, err := repo.Latest(context.Background(), "a1", "EmailSignIn")
	require.NoError(t, err)
	assert.Equal(t, "d9", rec.DeliveryID)
}

func TestDeliveryRepo_LatestNone(t *testing.T) {
	api := new(mockAPI)
	repo := NewDeliveryRepo(api, "deliveries")
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := repo.Latest(context.Background(), "a1", "EmailSignIn")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_GetNotFound(t *testing.T) {
	api := new(mockAPI)
	repo := NewAccountRepo(api, "accounts")
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_GetByEmailNormalizes(t *testing.T) {
	api := new(mockAPI)
	repo := NewAccountRepo(api, "accounts")
	item, err := attributevalue.MarshalMap(domain.Account{AccountID: "a1", Email: "user@example.com"})
	require.NoError(t, err)
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
		return v.Value == "user@example.com" && *in.IndexName == "email-index"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	a, err := repo.GetByEmail(context.Background(), "  User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.AccountID)
}

func TestAccountRepo_UpdateMissingAccount(t *testing.T) {
	api := new(mockAPI)
	repo := NewAccountRepo(api, "accounts")
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.Update(context.Background(), "a1", map[string]interface{}{"blocked": true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientRepo_ListActiveFollowsPages(t *testing.T) {
	api := new(mockAPI)
	repo := NewClientRepo(api, "clients")
	c1, _ := attributevalue.MarshalMap(domain.Client{ClientID: "c1", BaseURL: "https://one", Enable: true})
	c2, _ := attributevalue.MarshalMap(domain.Client{ClientID: "c2", BaseURL: "https://two", Enable: true})
	lastKey := strKey("client_id", "c1")

	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{c1}, LastEvaluatedKey: lastKey}, nil).Once()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{c2}}, nil).Once()

	clients, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "c2", clients[1].ClientID)
}

func TestAccountRepo_GetByEmailSkipsDeleted(t *testing.T) {
	api := new(mockAPI)
	repo := NewAccountRepo(api, "accounts")
	deletedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gone, _ := attributevalue.MarshalMap(domain.Account{AccountID: "old", Email: "user@example.com", DeletedAt: &deletedAt})
	live, _ := attributevalue.MarshalMap(domain.Account{AccountID: "new", Email: "user@example.com"})
	api.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{gone, live}}, nil)

	a, err := repo.GetByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", a.AccountID)
}
