package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/grachmannico95/invoice-import-be/internal/config"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// MinioStore is the S3-compatible object store backend.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewMinioStore(cfg config.ObjectStoreConfig, log *logger.Logger) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region != "" {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region)
		} else {
			endpoint = "s3.amazonaws.com"
		}
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	options := &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	}
	if cfg.ForcePathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://"), options)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, logger: log}, nil
}

func (s *MinioStore) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("objectstore: presign put: %w", err)
	}
	return url.String(), nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrObjectNotFound
		}
		return nil, fmt.Errorf("objectstore: read object: %w", err)
	}

	return data, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("objectstore: put object: %w", err)
	}
	return nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("objectstore: remove object: %w", err)
	}
	return nil
}

// Listen consumes bucket notifications for created objects and invokes fn
// with each object key. It blocks until ctx is cancelled. Deployments that
// receive bucket events through the webhook route do not use it.
func (s *MinioStore) Listen(ctx context.Context, fn func(key string)) {
	events := s.client.ListenBucketNotification(ctx, s.bucket, "", "", []string{
		"s3:ObjectCreated:*",
	})

	for info := range events {
		if info.Err != nil {
			s.logger.Error(ctx, "Bucket notification error",
				"error", info.Err,
			)
			continue
		}
		for _, record := range info.Records {
			fn(record.S3.Object.Key)
		}
	}
}

var _ domain.ObjectStore = (*MinioStore)(nil)
