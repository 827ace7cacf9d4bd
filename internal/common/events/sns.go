package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "ehealth-workers/internal/common/aws"
	"ehealth-workers/internal/models"
)

// SNSEmitter publishes events to a topic; subscribers filter on the
// "eventname" message attribute.
type SNSEmitter struct {
	publisher awsclient.SNSPublisher
	topicARN  string
}

func NewSNSEmitter(publisher awsclient.SNSPublisher, topicARN string) *SNSEmitter {
	return &SNSEmitter{publisher: publisher, topicARN: topicARN}
}

func (e *SNSEmitter) Emit(ctx context.Context, event *models.CertificateTransferredEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = e.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(e.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("certificate_transferred"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventname": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.EventName),
			},
			"component": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Component),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}
