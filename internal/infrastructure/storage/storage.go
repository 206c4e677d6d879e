// Package storage provides object storage implementations for migrated media.
package storage

import (
	"context"
	"errors"
	"fmt"

	infraconfig "github.com/hostcatalog/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Visibility is the access level of an uploaded object
type Visibility string

const (
	VisibilityPrivate    Visibility = "private"
	VisibilityPublicRead Visibility = "public-read"
)

// ImmutableCacheControl is the cache directive for content-addressed media that never changes
const ImmutableCacheControl = "public, max-age=31536000, immutable"

// ErrKeyRequired is returned when an operation is called without an object key
var ErrKeyRequired = errors.New("storage key is required")

// UploadOptions describes how an object is stored
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Visibility   Visibility
	Metadata     map[string]string
}

// ObjectStorage stores objects and returns their public URL
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, opts UploadOptions) (string, error)
}

// BucketStorage is an ObjectStorage backed by a bucket that may need creating first
type BucketStorage interface {
	ObjectStorage
	EnsureBucket(ctx context.Context) error
}

// New builds the object storage selected by cfg.Driver and makes sure its bucket exists
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (BucketStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store BucketStorage
		err   error
	)
	switch cfg.Driver {
	case infraconfig.StorageDriverMinio:
		store, err = NewMinioObjectStorage(cfg, WithMinioLogger(logger))
	case infraconfig.StorageDriverS3, "":
		store, err = NewS3ObjectStorage(cfg, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func validateConfig(cfg *infraconfig.StorageConfig) error {
	if cfg == nil {
		return errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return errors.New("storage secret key is required")
	}
	return nil
}

// objectURL returns the public URL for key, using the configured public base when set
func objectURL(cfg infraconfig.StorageConfig, endpoint, key string) string {
	if cfg.PublicBaseURL == "" {
		cfg.Endpoint = endpoint
	}
	return cfg.ObjectURL(key)
}
