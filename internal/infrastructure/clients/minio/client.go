package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/retry"
)

// Client wraps a MinIO client bound to one bucket
type Client struct {
	client *minio.Client
	bucket string
}

// NewClient connects to the object store and makes sure the bucket exists
func NewClient(ctx context.Context, cfg *config.MinioConfig) (*Client, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	logger := observability.GetLogger()
	err = retry.Do(logger.WithContext(ctx), retry.DefaultConfig(), "MinIO", func(ctx context.Context) error {
		exists, err := cli.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare minio bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Successfully connected to MinIO")
	return &Client{client: cli, bucket: cfg.Bucket}, nil
}

// Client returns the underlying MinIO client
func (c *Client) Client() *minio.Client {
	return c.client
}

// Bucket returns the bucket documents are stored in
func (c *Client) Bucket() string {
	return c.bucket
}
