// Package topic publishes notifications to SNS topics and checks whether a
// topic exists.
package topic

import (
	"context"
	"errors"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/gurre/awsgate/aws"
	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/probe"
	"github.com/sirupsen/logrus"
)

// PublishRequest is the inbound body of POST /api/sns/publish.
type PublishRequest struct {
	TopicArn               string `json:"topicArn"`
	Message                string `json:"message"`
	Subject                string `json:"subject,omitempty"`
	MessageGroupID         string `json:"messageGroupId,omitempty"`
	MessageDeduplicationID string `json:"messageDeduplicationId,omitempty"`
}

// Validate checks the required fields.
func (r *PublishRequest) Validate() error {
	var v envelope.Validator
	v.Required("topicArn", r.TopicArn)
	v.Required("message", r.Message)
	return v.Err()
}

// Adapter talks to SNS through an SNSClient.
type Adapter struct {
	client aws.SNSClient
	logger logrus.FieldLogger
}

// New creates a topic Adapter.
func New(client aws.SNSClient, logger logrus.FieldLogger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Publish sends the message and returns the provider-assigned message id.
func (a *Adapter) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	input := &sns.PublishInput{
		TopicArn:               sdkaws.String(req.TopicArn),
		Message:                sdkaws.String(req.Message),
		Subject:                optional(req.Subject),
		MessageGroupId:         optional(req.MessageGroupID),
		MessageDeduplicationId: optional(req.MessageDeduplicationID),
	}

	out, err := a.client.Publish(ctx, input)
	if err != nil {
		return "", envelope.Dependency("Publish", err)
	}

	id := sdkaws.ToString(out.MessageId)
	a.logger.WithFields(logrus.Fields{"topicArn": req.TopicArn, "messageId": id}).Info("message published")
	return id, nil
}

// Probe reads the topic's attributes to decide whether it exists.
func (a *Adapter) Probe(ctx context.Context, topicArn string) probe.Result {
	_, err := a.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{TopicArn: sdkaws.String(topicArn)})
	if err == nil {
		return probe.OK()
	}
	if isNotFound(err) {
		return probe.Missing()
	}
	return probe.Error(err)
}

// Exists reports whether the topic was positively found.
func (a *Adapter) Exists(ctx context.Context, topicArn string) bool {
	return a.Probe(ctx, topicArn).Exists()
}

func isNotFound(err error) bool {
	var nf *types.NotFoundException
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// optional returns nil for blank values so they are left out of the request.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sdkaws.String(s)
}
