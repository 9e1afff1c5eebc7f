package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-idp-security/internal/domain"
)

// ClientRepo reads the relying-party client catalog. The catalog is owned by the
// protocol engine; this repo never writes to it.
type ClientRepo struct {
	client    API
	tableName string
}

func NewClientRepo(client API, tableName string) *ClientRepo {
	return &ClientRepo{client: client, tableName: tableName}
}

// ListActive returns every enabled client, following scan pagination.
func (r *ClientRepo) ListActive(ctx context.Context) ([]domain.Client, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#e = :t"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var clients []domain.Client
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan clients: %w", err)
		}
		var batch []domain.Client
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		clients = append(clients, batch...)
	}
	return clients, nil
}
