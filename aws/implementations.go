package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSClientImpl implements SQSClient on top of the SDK client.
type SQSClientImpl struct {
	client *sqs.Client
}

// NewSQSClient creates a new SQSClientImpl instance
func NewSQSClient(client *sqs.Client) *SQSClientImpl {
	return &SQSClientImpl{client: client}
}

// GetQueueUrl resolves a queue name to its URL
func (c *SQSClientImpl) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return c.client.GetQueueUrl(ctx, params, optFns...)
}

// SendMessage enqueues one message
func (c *SQSClientImpl) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return c.client.SendMessage(ctx, params, optFns...)
}

// SNSClientImpl implements SNSClient on top of the SDK client.
type SNSClientImpl struct {
	client *sns.Client
}

// NewSNSClient creates a new SNSClientImpl instance
func NewSNSClient(client *sns.Client) *SNSClientImpl {
	return &SNSClientImpl{client: client}
}

func (c *SNSClientImpl) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return c.client.Publish(ctx, params, optFns...)
}

func (c *SNSClientImpl) GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error) {
	return c.client.GetTopicAttributes(ctx, params, optFns...)
}

// S3ClientImpl implements S3Client on top of the SDK client.
type S3ClientImpl struct {
	client *s3.Client
}

// NewS3Client creates a new S3ClientImpl instance
func NewS3Client(client *s3.Client) *S3ClientImpl {
	return &S3ClientImpl{client: client}
}

// PutObject implements the S3Client interface for writing objects
func (c *S3ClientImpl) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return c.client.PutObject(ctx, params, optFns...)
}

// GetObject implements the S3Client interface for reading objects
func (c *S3ClientImpl) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return c.client.GetObject(ctx, params, optFns...)
}

func (c *S3ClientImpl) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return c.client.DeleteObject(ctx, params, optFns...)
}

// ListObjectsV2 returns a single page; callers do not paginate.
func (c *S3ClientImpl) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return c.client.ListObjectsV2(ctx, params, optFns...)
}

func (c *S3ClientImpl) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return c.client.HeadBucket(ctx, params, optFns...)
}

// SecretsManagerClientImpl implements SecretsManagerClient on top of the SDK
// client.
type SecretsManagerClientImpl struct {
	client *secretsmanager.Client
}

// NewSecretsManagerClient creates a new SecretsManagerClientImpl instance
func NewSecretsManagerClient(client *secretsmanager.Client) *SecretsManagerClientImpl {
	return &SecretsManagerClientImpl{client: client}
}

func (c *SecretsManagerClientImpl) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	return c.client.CreateSecret(ctx, params, optFns...)
}

func (c *SecretsManagerClientImpl) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return c.client.GetSecretValue(ctx, params, optFns...)
}

func (c *SecretsManagerClientImpl) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	return c.client.UpdateSecret(ctx, params, optFns...)
}

func (c *SecretsManagerClientImpl) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	return c.client.DeleteSecret(ctx, params, optFns...)
}

func (c *SecretsManagerClientImpl) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	return c.client.DescribeSecret(ctx, params, optFns...)
}
