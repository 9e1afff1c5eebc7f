package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-idp-security/internal/config"
)

// PublishAPI is the subset of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// LogoutMessage is the body relying parties receive from the logout topic.
type LogoutMessage struct {
	Event      string    `json:"event"`
	AccountID  string    `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LogoutPublisher broadcasts forced sign-out to every subscriber of one topic.
type LogoutPublisher struct {
	client   PublishAPI
	topicARN string
}

func NewClient(cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, opts...), nil
}

func NewLogoutPublisher(client PublishAPI, topicARN string) *LogoutPublisher {
	return &LogoutPublisher{client: client, topicARN: topicARN}
}

// PublishLogout sends one message for accountID; subscribers fan it out.
func (p *LogoutPublisher) PublishLogout(ctx context.Context, accountID string) error {
	body, err := json.Marshal(LogoutMessage{Event: "logout", AccountID: accountID, OccurredAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String("logout")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish logout: %w", err)
	}
	return nil
}
