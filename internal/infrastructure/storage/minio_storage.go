package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	infraconfig "github.com/hostcatalog/backend/internal/infrastructure/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var _ BucketStorage = (*MinioObjectStorage)(nil)

// amzACLHeader is passed through minio user metadata as a request header
const amzACLHeader = "X-Amz-Acl"

// MinioObjectStorage implements ObjectStorage using the minio-go SDK
type MinioObjectStorage struct {
	client   *minio.Client
	cfg      infraconfig.StorageConfig
	endpoint string
	logger   *zap.Logger
}

// MinioObjectStorageOption is a functional option for configuring MinioObjectStorage
type MinioObjectStorageOption func(*MinioObjectStorage)

// WithMinioLogger sets a custom logger for MinioObjectStorage
func WithMinioLogger(logger *zap.Logger) MinioObjectStorageOption {
	return func(s *MinioObjectStorage) {
		s.logger = logger
	}
}

// NewMinioObjectStorage creates a new MinioObjectStorage from configuration
func NewMinioObjectStorage(cfg *infraconfig.StorageConfig, opts ...MinioObjectStorageOption) (*MinioObjectStorage, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	host, secure := splitEndpoint(endpoint)

	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	storage := &MinioObjectStorage{
		client:   client,
		cfg:      *cfg,
		endpoint: endpoint,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

// splitEndpoint returns the host part of a normalized endpoint and whether it uses TLS
func splitEndpoint(endpoint string) (host string, secure bool) {
	if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return rest, true
	}
	return strings.TrimPrefix(endpoint, "http://"), false
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioObjectStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.cfg.Bucket))
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores data under key and returns its public URL
func (s *MinioObjectStorage) Upload(ctx context.Context, key string, data []byte, opts UploadOptions) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		UserMetadata: minioMetadata(opts),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	s.logger.Debug("Object uploaded",
		zap.String("key", key),
		zap.Int("size", len(data)))

	return objectURL(s.cfg, s.endpoint, key), nil
}

// minioMetadata merges user metadata with the canned ACL header
func minioMetadata(opts UploadOptions) map[string]string {
	meta := make(map[string]string, len(opts.Metadata)+1)
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	if opts.Visibility != "" {
		meta[amzACLHeader] = string(opts.Visibility)
	}
	return meta
}
