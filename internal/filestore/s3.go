package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
)

type s3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(cfg config.FileStoreConfig) (Store, error) {
	c := cfg.S3
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := c.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if c.SecretID != "" && c.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.SecretID, c.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			// custom endpoints (minio, localstack) rarely resolve virtual hosts
			o.UsePathStyle = true
		}
		if c.PathStyle {
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client: client,
		bucket: c.Bucket,
		prefix: strings.Trim(c.Prefix, "/"),
	}, nil
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) objectKey(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix != "" {
		return path.Join(s.prefix, clean), nil
	}
	return clean, nil
}

func (s *s3Store) Location(key string) string {
	objectKey, err := s.objectKey(key)
	if err != nil {
		objectKey = key
	}
	return "s3://" + s.bucket + "/" + objectKey
}

func (s *s3Store) Save(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", objectKey, err)
	}
	return nil
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", objectKey, err)
	}
	return out.Body, nil
}
