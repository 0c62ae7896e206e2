package csvexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/office-portal/pkg/logging"
)

// Sink stores a finished export and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes exports into a local directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &FileSink{dir: dir}
}

func (s *FileSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("csvexport: create export dir: %w", err)
	}
	target := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("csvexport: write %s: %w", target, err)
	}
	return target, nil
}

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives exports to s3://bucket/prefix/name.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
	logger *logging.Logger
}

func NewS3Sink(client S3API, bucket, prefix string, logger *logging.Logger) (*S3Sink, error) {
	if client == nil {
		return nil, errors.New("csvexport: s3 client required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("csvexport: s3 bucket required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}, nil
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(s.prefix, path.Base(name))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("csvexport: s3 put %s: %w", key, err)
	}
	location := "s3://" + s.bucket + "/" + key
	s.logger.Info("uploaded bookings export", "location", location, "bytes", len(data))
	return location, nil
}
