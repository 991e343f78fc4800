package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Mirror receives a copy of every successfully stored upload.
type Mirror interface {
	Put(ctx context.Context, key string, data []byte) error
}

// MirrorKey builds the object key "<site>/<remotePath>/<name>" with the
// remote path cleaned of leading, trailing and repeated slashes.
func MirrorKey(site, remotePath, name string) string {
	parts := []string{site}
	if p := strings.Trim(path.Clean("/"+strings.ReplaceAll(remotePath, "\\", "/")), "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, name)
	return strings.Join(parts, "/")
}

// ObjectPutter is the subset of *s3.Client used by S3Mirror.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3MirrorConfig configures an S3Mirror.
type S3MirrorConfig struct {
	Client    ObjectPutter
	Bucket    string
	KeyPrefix string
}

// S3Mirror writes uploads to an S3 (or S3 compatible) bucket.
type S3Mirror struct {
	client    ObjectPutter
	bucket    string
	keyPrefix string
}

// NewS3Mirror creates an S3Mirror.
func NewS3Mirror(cfg S3MirrorConfig) (*S3Mirror, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 mirror: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 mirror: bucket is required")
	}
	return &S3Mirror{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Put uploads data under keyPrefix+key.
func (m *S3Mirror) Put(ctx context.Context, key string, data []byte) error {
	fullKey := m.keyPrefix + key
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, fullKey, err)
	}
	return nil
}
