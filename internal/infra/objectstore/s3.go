// Package objectstore persists raw upload files to S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/pkg/logger"
)

// S3Store writes raw upload files to a bucket, one object per ingestion
// log, so the original bytes survive after row processing.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *logger.Logger
}

// NewS3Store creates an archive store from the archive configuration.
// Static credentials are used when provided, otherwise the default AWS
// credential chain applies.
func NewS3Store(ctx context.Context, cfg config.ArchiveConfig, log *logger.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		logger: log.With("component", "archive_store"),
	}, nil
}

// objectKey partitions archived uploads by import day.
func objectKey(importedAt time.Time, logID, filename string) string {
	return path.Join("uploads", importedAt.UTC().Format("2006/01/02"), logID+"_"+filename)
}

// Put stores the raw file bytes under a day-partitioned key and returns
// the object key.
func (s *S3Store) Put(ctx context.Context, logID, filename string, data []byte) (string, error) {
	key := objectKey(time.Now(), logID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive upload %s: %w", logID, err)
	}

	s.logger.Info("upload archived",
		"log_id", logID,
		"key", key,
		"bytes", len(data),
	)
	return key, nil
}
