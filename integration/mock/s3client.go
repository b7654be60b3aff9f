// Package mock provides in-memory stand-ins for the AWS clients in package
// aws. They keep just enough state to behave like the real services for the
// calls awsgate makes, are safe for concurrent use, and back both the tests
// and the serve --in-memory mode.
package mock

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultMaxKeys = 1000

type object struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
}

// S3Client is a mock implementation of aws.S3Client interface for testing
type S3Client struct {
	mu      sync.Mutex
	buckets map[string]map[string]*object

	// AutoCreateBuckets makes PutObject create missing buckets instead of
	// failing with NoSuchBucket.
	AutoCreateBuckets bool
	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewS3Client creates a new mock S3 client holding the given empty buckets.
func NewS3Client(buckets ...string) *S3Client {
	m := &S3Client{buckets: make(map[string]map[string]*object)}
	for _, b := range buckets {
		m.CreateBucket(b)
	}
	return m
}

// CreateBucket adds an empty bucket. Existing buckets are left untouched.
func (m *S3Client) CreateBucket(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = make(map[string]*object)
	}
}

// Metadata returns a copy of the user metadata stored with an object, or nil
// if the object does not exist.
func (m *S3Client) Metadata(bucket, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		out[k] = v
	}
	return out
}

// PutObject implements the S3Client interface for writing objects
func (m *S3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var data []byte
	if params.Body != nil {
		var err error
		data, err = io.ReadAll(params.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := aws.ToString(params.Bucket)
	objects, ok := m.buckets[bucket]
	if !ok {
		if !m.AutoCreateBuckets {
			return nil, noSuchBucket(bucket)
		}
		objects = make(map[string]*object)
		m.buckets[bucket] = objects
	}

	sum := md5.Sum(data)
	etag := fmt.Sprintf("%q", hex.EncodeToString(sum[:]))
	meta := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		meta[k] = v
	}
	objects[aws.ToString(params.Key)] = &object{
		data:        data,
		contentType: aws.ToString(params.ContentType),
		metadata:    meta,
		etag:        etag,
	}

	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

// GetObject implements the S3Client interface for reading objects
func (m *S3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket(aws.ToString(params.Bucket))
	}
	obj, ok := objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{
			Message: aws.String("The specified key does not exist."),
		}
	}

	data := append([]byte(nil), obj.data...)
	out := &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String(obj.etag),
		Metadata:      obj.metadata,
	}
	if obj.contentType != "" {
		out.ContentType = aws.String(obj.contentType)
	}
	return out, nil
}

// DeleteObject removes the key. Like S3, deleting a missing key succeeds.
func (m *S3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket(aws.ToString(params.Bucket))
	}
	delete(objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 returns keys in lexicographic order, as S3 does, honouring
// Prefix and MaxKeys. Only the first page is ever returned.
func (m *S3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := aws.ToString(params.Bucket)
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, noSuchBucket(bucket)
	}

	prefix := aws.ToString(params.Prefix)
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	maxKeys := defaultMaxKeys
	if params.MaxKeys != nil && *params.MaxKeys > 0 {
		maxKeys = int(*params.MaxKeys)
	}
	truncated := len(keys) > maxKeys
	if truncated {
		keys = keys[:maxKeys]
	}

	contents := make([]types.Object, 0, len(keys))
	for _, k := range keys {
		obj := objects[k]
		contents = append(contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(obj.data))),
			ETag: aws.String(obj.etag),
		})
	}

	out := &s3.ListObjectsV2Output{
		Name:        aws.String(bucket),
		Contents:    contents,
		KeyCount:    aws.Int32(int32(len(contents))),
		IsTruncated: aws.Bool(truncated),
	}
	if prefix != "" {
		out.Prefix = aws.String(prefix)
	}
	return out, nil
}

// HeadBucket answers with types.NotFound for unknown buckets, matching the
// body-less 404 the real service sends.
func (m *S3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadBucketOutput{}, nil
}

func noSuchBucket(bucket string) error {
	return &types.NoSuchBucket{
		Message: aws.String(fmt.Sprintf("The specified bucket does not exist: %s", bucket)),
	}
}
