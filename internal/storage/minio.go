package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/config"
)

// MinIO stores documents in an S3-compatible bucket and hands out presigned
// download URLs.
type MinIO struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

// NewMinIO connects to the endpoint and creates the bucket when missing.
func NewMinIO(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinIO, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinIOBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinIOBucket, err)
		}
		logger.Info("created storage bucket", zap.String("bucket", cfg.MinIOBucket))
	}

	ttl := cfg.PresignTTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MinIO{client: client, bucket: cfg.MinIOBucket, presignTTL: ttl}, nil
}

func (m *MinIO) Put(ctx context.Context, dir string, obj Object) (string, error) {
	key := objectKey(dir, obj.Filename)
	_, err := m.client.PutObject(ctx, m.bucket, key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

func (m *MinIO) URL(ctx context.Context, ref string) (string, error) {
	cleaned, err := cleanRef(ref)
	if err != nil {
		return "", err
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, cleaned, m.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", cleaned, err)
	}
	return u.String(), nil
}
