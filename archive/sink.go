// Package archive stores rendered invoice artifacts in durable storage.
//
// The Plugin renders every issued invoice as a CSV line-item export and an
// HTML remittance document and hands both to a Sink. S3Sink writes them to
// an S3 bucket; MemorySink keeps them in process.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink persists a named artifact.
type Sink interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

// ──────────────────────────────────────────────────
// S3
// ──────────────────────────────────────────────────

// S3Config holds the bucket and credentials for S3Sink. Empty credentials
// fall back to the default AWS provider chain.
type S3Config struct {
	Bucket          string `json:"bucket" mapstructure:"bucket" yaml:"bucket"`
	Region          string `json:"region" mapstructure:"region" yaml:"region"`
	Prefix          string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`
	AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"-" mapstructure:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`
}

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink writes artifacts to an S3 bucket.
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink wraps an existing client.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// NewS3SinkFromConfig loads AWS configuration and builds a client for cfg.
func NewS3SinkFromConfig(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Sink(client, cfg.Bucket, cfg.Prefix), nil
}

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: put s3://%s/%s%s: %w", s.bucket, s.prefix, key, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Memory
// ──────────────────────────────────────────────────

// Object is an artifact held by MemorySink.
type Object struct {
	ContentType string
	Body        []byte
}

// MemorySink keeps artifacts in a map.
type MemorySink struct {
	mu      sync.Mutex
	objects map[string]Object
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{objects: make(map[string]Object)}
}

// Put implements Sink.
func (m *MemorySink) Put(_ context.Context, key, contentType string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Body: buf.Bytes()}
	return nil
}

// Get returns the artifact stored under key.
func (m *MemorySink) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len returns the number of stored artifacts.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
