package media

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"portfolioadmin/internal/config"
)

// objectRemover is the subset of *minio.Client used for deletes.
type objectRemover interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// MinIODestroyer deletes self-hosted assets from an S3-compatible bucket.
// Objects are keyed "<kind>/<publicId>".
// It is safe for concurrent use by multiple goroutines.
type MinIODestroyer struct {
	client objectRemover
	bucket string
}

// NewMinIODestroyer connects to the bucket described by cfg and checks
// that it exists.
func NewMinIODestroyer(ctx context.Context, cfg config.MinIOConfig) (*MinIODestroyer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &MinIODestroyer{client: cli, bucket: cfg.Bucket}, nil
}

// ObjectKey returns the bucket key for an asset.
func ObjectKey(publicID string, kind ResourceType) string {
	return string(kind) + "/" + publicID
}

// Destroy removes the object. A missing object reports ResultNotFound.
func (m *MinIODestroyer) Destroy(ctx context.Context, publicID string, kind ResourceType) (string, error) {
	if publicID == "" {
		return "", fmt.Errorf("public id is required")
	}
	kind, err := ParseResourceType(string(kind))
	if err != nil {
		return "", err
	}
	key := ObjectKey(publicID, kind)

	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ResultNotFound, nil
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return "", fmt.Errorf("remove %s: %w", key, err)
	}
	return ResultOK, nil
}
