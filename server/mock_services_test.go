package server

import (
	"context"
	"time"

	"github.com/gurre/awsgate/objectstore"
	"github.com/gurre/awsgate/probe"
	"github.com/gurre/awsgate/queue"
	"github.com/gurre/awsgate/secret"
	"github.com/gurre/awsgate/topic"
	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of QueueService for testing.
type MockQueue struct {
	mock.Mock
}

var _ QueueService = (*MockQueue)(nil)

func (m *MockQueue) Send(ctx context.Context, req queue.SendRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockTopic is a mock implementation of TopicService for testing.
type MockTopic struct {
	mock.Mock
}

var _ TopicService = (*MockTopic)(nil)

func (m *MockTopic) Publish(ctx context.Context, req topic.PublishRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockTopic) Probe(ctx context.Context, topicArn string) probe.Result {
	args := m.Called(ctx, topicArn)
	return args.Get(0).(probe.Result)
}

// MockObjects is a mock implementation of ObjectService for testing.
type MockObjects struct {
	mock.Mock
}

var _ ObjectService = (*MockObjects)(nil)

func (m *MockObjects) Put(ctx context.Context, req objectstore.PutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjects) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockObjects) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockObjects) Probe(ctx context.Context, bucket string) probe.Result {
	args := m.Called(ctx, bucket)
	return args.Get(0).(probe.Result)
}

// MockSecrets is a mock implementation of SecretService for testing.
type MockSecrets struct {
	mock.Mock
}

var _ SecretService = (*MockSecrets)(nil)

func (m *MockSecrets) Create(ctx context.Context, req secret.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockSecrets) Get(ctx context.Context, name, versionStage string) (string, error) {
	args := m.Called(ctx, name, versionStage)
	return args.String(0), args.Error(1)
}

func (m *MockSecrets) Update(ctx context.Context, req secret.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockSecrets) Delete(ctx context.Context, name string, force bool) (*time.Time, error) {
	args := m.Called(ctx, name, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockSecrets) Probe(ctx context.Context, name string) probe.Result {
	args := m.Called(ctx, name)
	return args.Get(0).(probe.Result)
}
