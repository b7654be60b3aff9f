// Package queue sends messages to SQS queues on behalf of HTTP callers.
package queue

import (
	"context"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gurre/awsgate/aws"
	"github.com/gurre/awsgate/envelope"
	"github.com/sirupsen/logrus"
)

// MaxDelaySeconds is the largest per-message delay SQS accepts.
const MaxDelaySeconds = 900

// SendRequest is the inbound body of POST /api/sqs/send.
type SendRequest struct {
	QueueName              string `json:"queueName"`
	MessageBody            string `json:"messageBody"`
	MessageGroupID         string `json:"messageGroupId,omitempty"`
	MessageDeduplicationID string `json:"messageDeduplicationId,omitempty"`
	DelaySeconds           *int32 `json:"delaySeconds,omitempty"`
}

// Validate checks required fields and the delay range.
func (r *SendRequest) Validate() error {
	var v envelope.Validator
	v.Required("queueName", r.QueueName)
	v.Required("messageBody", r.MessageBody)
	if r.DelaySeconds != nil {
		v.Range("delaySeconds", int64(*r.DelaySeconds), 0, MaxDelaySeconds)
	}
	return v.Err()
}

// Adapter sends messages through an SQSClient.
type Adapter struct {
	client aws.SQSClient
	logger logrus.FieldLogger
}

// New creates a queue Adapter.
func New(client aws.SQSClient, logger logrus.FieldLogger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Send enqueues the message and returns the provider-assigned message id.
// queueName may be a bare queue name, which is resolved with GetQueueUrl, or
// a full queue URL, which is used as is. Blank optional fields are left out of
// the SDK input entirely.
func (a *Adapter) Send(ctx context.Context, req SendRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	queueURL, err := a.resolve(ctx, req.QueueName)
	if err != nil {
		return "", err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(queueURL),
		MessageBody: sdkaws.String(req.MessageBody),
	}
	if strings.TrimSpace(req.MessageGroupID) != "" {
		input.MessageGroupId = sdkaws.String(req.MessageGroupID)
	}
	if strings.TrimSpace(req.MessageDeduplicationID) != "" {
		input.MessageDeduplicationId = sdkaws.String(req.MessageDeduplicationID)
	}
	if req.DelaySeconds != nil {
		input.DelaySeconds = *req.DelaySeconds
	}

	out, err := a.client.SendMessage(ctx, input)
	if err != nil {
		return "", envelope.Dependency("SendMessage", err)
	}

	id := sdkaws.ToString(out.MessageId)
	a.logger.WithFields(logrus.Fields{"queue": req.QueueName, "messageId": id}).Info("message sent")
	return id, nil
}

func (a *Adapter) resolve(ctx context.Context, queueName string) (string, error) {
	if strings.HasPrefix(queueName, "https://") || strings.HasPrefix(queueName, "http://") {
		return queueName, nil
	}
	out, err := a.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: sdkaws.String(queueName)})
	if err != nil {
		return "", envelope.Dependency("GetQueueUrl", err)
	}
	return sdkaws.ToString(out.QueueUrl), nil
}
