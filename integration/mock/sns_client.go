package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// TopicARNPrefix is prepended to topic names to form their ARNs.
const TopicARNPrefix = "arn:aws:sns:us-east-1:000000000000:"

// Notification is a message accepted by the SNS mock.
type Notification struct {
	ID              string
	Message         string
	Subject         string
	GroupID         string
	DeduplicationID string
}

// SNSClient is a mock implementation of aws.SNSClient interface for testing
type SNSClient struct {
	mu     sync.Mutex
	topics map[string][]Notification

	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewSNSClient creates a new mock SNS client holding the given topics.
func NewSNSClient(topics ...string) *SNSClient {
	m := &SNSClient{topics: make(map[string][]Notification)}
	for _, t := range topics {
		m.CreateTopic(t)
	}
	return m
}

// CreateTopic adds a topic and returns its ARN.
func (m *SNSClient) CreateTopic(name string) string {
	arn := TopicARNPrefix + name
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[arn]; !ok {
		m.topics[arn] = nil
	}
	return arn
}

// Published returns a copy of the notifications published to arn.
func (m *SNSClient) Published(arn string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.topics[arn]...)
}

// Publish records the notification on a known topic.
func (m *SNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	arn := aws.ToString(params.TopicArn)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.topics[arn]; !ok {
		return nil, topicNotFound()
	}
	if strings.HasSuffix(arn, ".fifo") && params.MessageGroupId == nil {
		return nil, &smithy.GenericAPIError{
			Code:    "InvalidParameter",
			Message: "Invalid parameter: The MessageGroupId parameter is required for FIFO topics",
		}
	}

	n := Notification{
		ID:              uuid.NewString(),
		Message:         aws.ToString(params.Message),
		Subject:         aws.ToString(params.Subject),
		GroupID:         aws.ToString(params.MessageGroupId),
		DeduplicationID: aws.ToString(params.MessageDeduplicationId),
	}
	m.topics[arn] = append(m.topics[arn], n)
	return &sns.PublishOutput{MessageId: aws.String(n.ID)}, nil
}

// GetTopicAttributes returns a minimal attribute map for known topics.
func (m *SNSClient) GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	arn := aws.ToString(params.TopicArn)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.topics[arn]; !ok {
		return nil, topicNotFound()
	}
	return &sns.GetTopicAttributesOutput{
		Attributes: map[string]string{
			"TopicArn":    arn,
			"DisplayName": arn[strings.LastIndex(arn, ":")+1:],
		},
	}, nil
}

func topicNotFound() error {
	return &types.NotFoundException{Message: aws.String("Topic does not exist")}
}
