// Package queue publishes audit records to downstream consumers over SQS.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

// sqsAPI is the slice of the SQS client the publisher uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AuditPublisher fans audit records out to an SQS queue for downstream
// consumers (reporting, compliance export). Publish failures never invalidate
// the calculation; the valuation layer logs and counts them.
type AuditPublisher struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger
}

// NewAuditPublisher creates a publisher from the default AWS config chain.
func NewAuditPublisher(ctx context.Context, queueURL string) (*AuditPublisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AuditPublisher{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   logger.Log,
	}, nil
}

// NewAuditPublisherWithClient creates a publisher over an existing client.
func NewAuditPublisherWithClient(client sqsAPI, queueURL string) *AuditPublisher {
	return &AuditPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger.Log,
	}
}

// PublishAuditRecord sends one audit record as a JSON message.
func (p *AuditPublisher) PublishAuditRecord(ctx context.Context, record *business.AuditRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	dealID := record.DealID.String()
	calculationID := record.CalculationID.String()

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"DealID": {
				StringValue: aws.String(dealID),
				DataType:    aws.String("String"),
			},
			"CalculationID": {
				StringValue: aws.String(calculationID),
				DataType:    aws.String("String"),
			},
			"RuleSetState": {
				StringValue: aws.String(record.RuleSetState),
				DataType:    aws.String("String"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audit record to SQS: %w", err)
	}

	p.logger.Debug("Published audit record",
		zap.String("deal_id", dealID),
		zap.String("calculation_id", calculationID))
	return nil
}
