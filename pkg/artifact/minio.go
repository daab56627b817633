package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioConfig holds the object store connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// minioPublisher uploads artifacts to an S3-compatible bucket.
type minioPublisher struct {
	client *minio.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewMinioPublisher connects to the object store and ensures the bucket
// exists.
func NewMinioPublisher(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("Created artifact bucket")
	}

	return &minioPublisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Publish uploads one artifact under <prefix>/<name> and returns its URL.
func (p *minioPublisher) Publish(ctx context.Context, name string, payload []byte, contentType string) (string, error) {
	key := name
	if p.prefix != "" {
		key = path.Join(p.prefix, name)
	}

	_, err := p.client.PutObject(ctx, p.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	url := fmt.Sprintf("%s/%s/%s", p.client.EndpointURL(), p.bucket, key)
	p.logger.Debug().
		Str("bucket", p.bucket).
		Str("key", key).
		Int("bytes", len(payload)).
		Msg("Artifact published")
	return url, nil
}

func (p *minioPublisher) Enabled() bool { return true }
