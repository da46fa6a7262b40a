// Package queue publishes well status-change events to SQS for the external
// alerting system.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"wellwatch/internal/types"
)

// SQSSender is the slice of *sqs.Client the publisher needs.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// StatusPublisher implements wells.AlertPublisher on top of one SQS queue.
// FIFO queues (URL ending in .fifo) get one message group per well so that
// a well's transitions are delivered in order.
type StatusPublisher struct {
	client   SQSSender
	queueURL string
	fifo     bool
	logger   *slog.Logger
}

// NewStatusPublisher creates a publisher for queueURL. FIFO queues are
// detected from the .fifo suffix.
func NewStatusPublisher(client SQSSender, queueURL string, logger *slog.Logger) *StatusPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPublisher{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
		logger:   logger,
	}
}

// PublishStatusChange fills EventID and EventType when unset and sends the
// event as JSON.
func (p *StatusPublisher) PublishStatusChange(ctx context.Context, evt types.StatusChangeEvent) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.EventType == "" {
		evt.EventType = types.EventWellStatusChanged
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal status event", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(evt.EventType)),
			},
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(evt.Status)),
			},
		},
	}
	if p.fifo {
		input.MessageGroupId = aws.String(evt.WellID)
		input.MessageDeduplicationId = aws.String(evt.EventID)
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to send status event to %s", p.queueURL), err)
	}

	p.logger.InfoContext(ctx, "status event published",
		"event_id", evt.EventID,
		"well_id", evt.WellID,
		"previous_status", evt.PreviousStatus,
		"status", evt.Status,
		"trace_id", evt.TraceID,
	)
	return nil
}

// Name and Check make the publisher a core.HealthProbe.
func (p *StatusPublisher) Name() string { return "sqs" }

func (p *StatusPublisher) Check(ctx context.Context) error {
	_, err := p.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(p.queueURL),
		AttributeNames: []sqsTypes.QueueAttributeName{sqsTypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	return err
}
