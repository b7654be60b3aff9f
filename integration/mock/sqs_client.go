package mock

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// QueueURLPrefix is prepended to queue names to form their URLs.
const QueueURLPrefix = "https://sqs.us-east-1.amazonaws.com/000000000000/"

// Message is a message accepted by the SQS mock.
type Message struct {
	ID              string
	Body            string
	GroupID         string
	DeduplicationID string
	DelaySeconds    int32
}

// SQSClient is a mock implementation of aws.SQSClient interface for testing
type SQSClient struct {
	mu     sync.Mutex
	queues map[string][]Message

	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewSQSClient creates a new mock SQS client holding the given empty queues.
func NewSQSClient(queues ...string) *SQSClient {
	m := &SQSClient{queues: make(map[string][]Message)}
	for _, q := range queues {
		m.CreateQueue(q)
	}
	return m
}

// CreateQueue adds an empty queue and returns its URL.
func (m *SQSClient) CreateQueue(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; !ok {
		m.queues[name] = nil
	}
	return QueueURLPrefix + name
}

// Messages returns a copy of the messages sent to the named queue.
func (m *SQSClient) Messages(name string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.queues[name]...)
}

// GetQueueUrl resolves a known queue name.
func (m *SQSClient) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := aws.ToString(params.QueueName)
	if _, ok := m.queues[name]; !ok {
		return nil, queueDoesNotExist()
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(QueueURLPrefix + name)}, nil
}

// SendMessage appends the message to the queue addressed by QueueUrl. FIFO
// queues (suffix .fifo) require a MessageGroupId.
func (m *SQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	url := aws.ToString(params.QueueUrl)
	name := url[strings.LastIndex(url, "/")+1:]

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.queues[name]; !ok {
		return nil, queueDoesNotExist()
	}
	if strings.HasSuffix(name, ".fifo") && params.MessageGroupId == nil {
		return nil, &smithy.GenericAPIError{
			Code:    "MissingParameter",
			Message: "The request must contain the parameter MessageGroupId.",
		}
	}

	msg := Message{
		ID:              uuid.NewString(),
		Body:            aws.ToString(params.MessageBody),
		GroupID:         aws.ToString(params.MessageGroupId),
		DeduplicationID: aws.ToString(params.MessageDeduplicationId),
		DelaySeconds:    params.DelaySeconds,
	}
	m.queues[name] = append(m.queues[name], msg)

	sum := md5.Sum([]byte(msg.Body))
	return &sqs.SendMessageOutput{
		MessageId:        aws.String(msg.ID),
		MD5OfMessageBody: aws.String(hex.EncodeToString(sum[:])),
	}, nil
}

func queueDoesNotExist() error {
	return &types.QueueDoesNotExist{
		Message: aws.String("The specified queue does not exist."),
	}
}
