// internal/common/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Outage describes a request for which no council member answered.
type Outage struct {
	RequestID string            `json:"requestId"`
	Question  string            `json:"question"`
	Failures  map[string]string `json:"failures"`
	At        time.Time         `json:"at"`
}

// Notifier is told about council-wide outages. Implementations must not
// block the caller for long and must swallow their own errors.
type Notifier interface {
	NotifyOutage(ctx context.Context, outage Outage)
}

// Publisher is the part of the SNS API the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	client   Publisher
	topicARN string
	logger   Logger
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log Logger) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), topicARN, log), nil
}

func NewSNSNotifierWithClient(client Publisher, topicARN string, log Logger) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN, logger: log}
}

func (n *SNSNotifier) NotifyOutage(ctx context.Context, outage Outage) {
	body, err := json.Marshal(outage)
	if err != nil {
		n.logger.Error("failed to encode outage notification", map[string]interface{}{"error": err.Error()})
		return
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("AI council: no member responded"),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		n.logger.Error("failed to publish outage notification", map[string]interface{}{
			"requestId": outage.RequestID,
			"error":     err.Error(),
		})
		return
	}

	n.logger.Info("outage notification published", map[string]interface{}{
		"requestId": outage.RequestID,
		"messageId": aws.ToString(out.MessageId),
	})
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) NotifyOutage(context.Context, Outage) {}
