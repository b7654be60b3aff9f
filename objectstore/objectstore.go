// Package objectstore reads and writes S3 objects for the HTTP layer.
//
// Every call is a single S3 round trip. List returns one page only; callers
// that need more than the provider's first page must narrow the prefix.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gurre/awsgate/aws"
	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/probe"
	"github.com/sirupsen/logrus"
)

// DefaultContent is stored when a put request carries no content at all.
const DefaultContent = "Default content"

// MetadataKey is the user-metadata key the request's metadata string is
// stored under.
const MetadataKey = "custom-metadata"

// PutRequest is the inbound body of POST /api/s3/upload. Content travels as
// base64 in JSON.
type PutRequest struct {
	BucketName  string `json:"bucketName"`
	ObjectKey   string `json:"objectKey"`
	ContentType string `json:"contentType,omitempty"`
	Content     []byte `json:"content,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// Validate checks the required fields.
func (r *PutRequest) Validate() error {
	var v envelope.Validator
	v.Required("bucketName", r.BucketName)
	v.Required("objectKey", r.ObjectKey)
	return v.Err()
}

// Adapter talks to S3 through an S3Client.
type Adapter struct {
	client aws.S3Client
	logger logrus.FieldLogger
}

// New creates an objectstore Adapter.
func New(client aws.S3Client, logger logrus.FieldLogger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Put writes the object and returns its ETag as reported by the provider.
func (a *Adapter) Put(ctx context.Context, req PutRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body := req.Content
	if body == nil {
		body = []byte(DefaultContent)
	}

	input := &s3.PutObjectInput{
		Bucket:        sdkaws.String(req.BucketName),
		Key:           sdkaws.String(req.ObjectKey),
		Body:          bytes.NewReader(body),
		ContentLength: sdkaws.Int64(int64(len(body))),
		Metadata:      map[string]string{},
	}
	if req.Metadata != "" {
		input.Metadata[MetadataKey] = req.Metadata
	}
	if strings.TrimSpace(req.ContentType) != "" {
		input.ContentType = sdkaws.String(req.ContentType)
	}

	out, err := a.client.PutObject(ctx, input)
	if err != nil {
		return "", envelope.Dependency("PutObject", err)
	}

	etag := sdkaws.ToString(out.ETag)
	a.logger.WithFields(logrus.Fields{
		"bucket": req.BucketName,
		"key":    req.ObjectKey,
		"size":   len(body),
	}).Info("object uploaded")
	return etag, nil
}

// Get returns the full content of the object.
func (a *Adapter) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := requireLocation(bucket, key); err != nil {
		return nil, err
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(bucket),
		Key:    sdkaws.String(key),
	})
	if err != nil {
		return nil, envelope.Dependency("GetObject", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, envelope.Dependency("GetObject", fmt.Errorf("failed to read object body: %w", err))
	}
	a.logger.WithFields(logrus.Fields{"bucket": bucket, "key": key, "size": len(data)}).Info("object downloaded")
	return data, nil
}

// Delete removes the object. S3 reports success for keys that do not exist.
func (a *Adapter) Delete(ctx context.Context, bucket, key string) error {
	if err := requireLocation(bucket, key); err != nil {
		return err
	}

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: sdkaws.String(bucket),
		Key:    sdkaws.String(key),
	})
	if err != nil {
		return envelope.Dependency("DeleteObject", err)
	}
	a.logger.WithFields(logrus.Fields{"bucket": bucket, "key": key}).Info("object deleted")
	return nil
}

// List returns the keys of the first listing page in the order the provider
// returned them. A blank prefix lists the whole bucket. The result is never
// nil so it encodes as an empty JSON array.
func (a *Adapter) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var v envelope.Validator
	v.Required("bucketName", bucket)
	if err := v.Err(); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{Bucket: sdkaws.String(bucket)}
	if strings.TrimSpace(prefix) != "" {
		input.Prefix = sdkaws.String(prefix)
	}

	out, err := a.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, envelope.Dependency("ListObjectsV2", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, sdkaws.ToString(obj.Key))
	}
	a.logger.WithFields(logrus.Fields{"bucket": bucket, "prefix": prefix, "count": len(keys)}).Info("objects listed")
	return keys, nil
}

// Probe checks the bucket with HeadBucket.
func (a *Adapter) Probe(ctx context.Context, bucket string) probe.Result {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: sdkaws.String(bucket)})
	if err == nil {
		return probe.OK()
	}
	if isNotFound(err) {
		return probe.Missing()
	}
	return probe.Error(err)
}

// Exists reports whether the bucket was positively found.
func (a *Adapter) Exists(ctx context.Context, bucket string) bool {
	return a.Probe(ctx, bucket).Exists()
}

func requireLocation(bucket, key string) error {
	var v envelope.Validator
	v.Required("bucketName", bucket)
	v.Required("objectKey", key)
	return v.Err()
}

// isNotFound matches the typed errors and the bare codes HeadBucket returns.
func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsb *types.NoSuchBucket
	if errors.As(err, &nf) || errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
