package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hostcatalog/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockS3Client is a mock implementation of s3API
type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func (m *mockS3Client) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.CreateBucketOutput), args.Error(1)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func validStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "hostcatalog",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func newTestS3Storage(t *testing.T, client *mockS3Client, cfg *config.StorageConfig) *S3ObjectStorage {
	t.Helper()
	s, err := NewS3ObjectStorage(cfg, WithLogger(zaptest.NewLogger(t)), withS3Client(client))
	require.NoError(t, err)
	return s
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3ObjectStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.AccessKey = ""
		_, err := NewS3ObjectStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.SecretKey = ""
		_, err := NewS3ObjectStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3ObjectStorage(validStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "hostcatalog", s.cfg.Bucket)
		assert.Equal(t, "http://localhost:9000", s.endpoint)
	})

	t.Run("endpoint without scheme uses ssl flag", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.Endpoint = "s3.example.com"
		cfg.UseSSL = true
		s, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://s3.example.com", s.endpoint)
	})
}

func TestS3ObjectStorage_Upload(t *testing.T) {
	t.Run("puts object with public-read acl and cache directive", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())

		var captured *s3.PutObjectInput
		client.On("PutObject", mock.Anything, mock.AnythingOfType("*s3.PutObjectInput")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*s3.PutObjectInput) }).
			Return(&s3.PutObjectOutput{}, nil)

		url, err := s.Upload(context.Background(), "hostings/acme/logo.png", []byte("png-bytes"), UploadOptions{
			ContentType:  "image/png",
			CacheControl: ImmutableCacheControl,
			Visibility:   VisibilityPublicRead,
			Metadata:     map[string]string{"hosting-slug": "acme"},
		})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000/hostcatalog/hostings/acme/logo.png", url)

		require.NotNil(t, captured)
		assert.Equal(t, "hostcatalog", aws.ToString(captured.Bucket))
		assert.Equal(t, "hostings/acme/logo.png", aws.ToString(captured.Key))
		assert.Equal(t, "image/png", aws.ToString(captured.ContentType))
		assert.Equal(t, ImmutableCacheControl, aws.ToString(captured.CacheControl))
		assert.Equal(t, types.ObjectCannedACLPublicRead, captured.ACL)
		assert.Equal(t, "acme", captured.Metadata["hosting-slug"])
		body, err := io.ReadAll(captured.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(body))
		client.AssertExpectations(t)
	})

	t.Run("uses public base url when configured", func(t *testing.T) {
		client := new(mockS3Client)
		cfg := validStorageConfig()
		cfg.PublicBaseURL = "https://cdn.example.com"
		s := newTestS3Storage(t, client, cfg)

		client.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

		url, err := s.Upload(context.Background(), "hostings/acme/logo-64.png", []byte("x"), UploadOptions{})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/hostings/acme/logo-64.png", url)
	})

	t.Run("wraps client error", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())
		client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := s.Upload(context.Background(), "k", []byte("x"), UploadOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload object k")
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("empty key", func(t *testing.T) {
		s := newTestS3Storage(t, new(mockS3Client), validStorageConfig())
		_, err := s.Upload(context.Background(), "", []byte("x"), UploadOptions{})
		assert.ErrorIs(t, err, ErrKeyRequired)
	})
}

func TestS3ObjectStorage_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)

		require.NoError(t, s.EnsureBucket(context.Background()))
		client.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("creates missing bucket", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)

		require.NoError(t, s.EnsureBucket(context.Background()))
		client.AssertExpectations(t)
	})

	t.Run("bucket already owned is not an error", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &types.NoSuchBucket{})
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(nil, &types.BucketAlreadyOwnedByYou{})

		require.NoError(t, s.EnsureBucket(context.Background()))
	})

	t.Run("other head errors are returned", func(t *testing.T) {
		client := new(mockS3Client)
		s := newTestS3Storage(t, client, validStorageConfig())
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, errors.New("forbidden"))

		err := s.EnsureBucket(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to check bucket existence")
	})
}
