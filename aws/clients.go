package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Clients bundles one client per supported service.
type Clients struct {
	SQS            SQSClient
	SNS            SNSClient
	S3             S3Client
	SecretsManager SecretsManagerClient
}

// LoadConfig loads the shared AWS configuration from the default chain
// (environment, shared files, instance role). An empty region leaves the
// chain's own resolution in place.
func LoadConfig(ctx context.Context, region string) (sdkaws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewClients builds the four service clients from cfg. When endpoint is set
// every client is pointed at it and S3 switches to path-style addressing, which
// is what LocalStack and similar emulators expect.
// Example:
//
//	cfg, err := aws.LoadConfig(ctx, "eu-west-1")
//	clients := aws.NewClients(cfg, "http://localhost:4566")
func NewClients(cfg sdkaws.Config, endpoint string) *Clients {
	var base *string
	if endpoint != "" {
		base = sdkaws.String(endpoint)
	}

	return &Clients{
		SQS: NewSQSClient(sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			o.BaseEndpoint = base
		})),
		SNS: NewSNSClient(sns.NewFromConfig(cfg, func(o *sns.Options) {
			o.BaseEndpoint = base
		})),
		S3: NewS3Client(s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = base
			o.UsePathStyle = base != nil
		})),
		SecretsManager: NewSecretsManagerClient(secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			o.BaseEndpoint = base
		})),
	}
}
