package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

type capturingSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (c *capturingSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	c.input = params
	if c.err != nil {
		return nil, c.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestAuditPublisher_PublishAuditRecord(t *testing.T) {
	client := &capturingSQS{}
	publisher := NewAuditPublisherWithClient(client, "https://sqs.test/audit")

	record := &business.AuditRecord{
		CalculationID: uuid.New(),
		DealID:        uuid.New(),
		RuleSetState:  "TX",
		FactsDigest:   "abc123",
	}

	err := publisher.PublishAuditRecord(context.Background(), record)
	require.NoError(t, err)
	require.NotNil(t, client.input)

	assert.Equal(t, "https://sqs.test/audit", *client.input.QueueUrl)
	assert.Equal(t, record.DealID.String(), *client.input.MessageAttributes["DealID"].StringValue)
	assert.Equal(t, "TX", *client.input.MessageAttributes["RuleSetState"].StringValue)

	var decoded business.AuditRecord
	require.NoError(t, json.Unmarshal([]byte(*client.input.MessageBody), &decoded))
	assert.Equal(t, record.CalculationID, decoded.CalculationID)
	assert.Equal(t, "abc123", decoded.FactsDigest)
}

func TestAuditPublisher_SendFailure(t *testing.T) {
	client := &capturingSQS{err: errors.New("queue unavailable")}
	publisher := NewAuditPublisherWithClient(client, "https://sqs.test/audit")

	err := publisher.PublishAuditRecord(context.Background(), &business.AuditRecord{
		CalculationID: uuid.New(),
		DealID:        uuid.New(),
	})
	assert.ErrorContains(t, err, "failed to send audit record")
}
