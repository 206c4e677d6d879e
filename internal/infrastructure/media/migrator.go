package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/infrastructure/config"
	"github.com/hostcatalog/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Default retry policy
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Variants recorded in object metadata
const (
	VariantOriginal    = "original"
	VariantThumbnail   = "thumbnail"
	VariantPlaceholder = "placeholder"
)

// Result describes the migrated image of one hosting
type Result struct {
	URL         string
	Key         string
	Format      string
	Placeholder bool
	Attempts    int
	Thumbnails  map[int]string
	// ThumbnailErrors holds one *ThumbnailError per size that could not be produced
	ThumbnailErrors []error
	// Cause is the last download or upload failure when a placeholder was used
	Cause error
}

// OriginalKey returns the object key of a hosting's original logo
func OriginalKey(slug, format string) string {
	return fmt.Sprintf("hostings/%s/logo.%s", slug, format)
}

// ThumbnailKey returns the object key of one thumbnail size
func ThumbnailKey(slug string, size int, format string) string {
	return fmt.Sprintf("hostings/%s/logo-%d.%s", slug, size, format)
}

// PlaceholderKey returns the object key of a hosting's placeholder
func PlaceholderKey(slug string) string {
	return fmt.Sprintf("hostings/%s/placeholder.png", slug)
}

// ImageMigrator downloads hosting logos, uploads them with thumbnails and falls back
// to a generated placeholder once every attempt has failed
type ImageMigrator struct {
	storage     storage.ObjectStorage
	downloader  *Downloader
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// Option configures an ImageMigrator
type Option func(*ImageMigrator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *ImageMigrator) {
		m.logger = logger
	}
}

// WithHTTPClient replaces the download client
func WithHTTPClient(client *http.Client, maxBytes int64) Option {
	return func(m *ImageMigrator) {
		m.downloader = NewDownloader(client, 0, maxBytes)
	}
}

// WithRetryPolicy sets the number of attempts and the fixed delay between them
func WithRetryPolicy(maxAttempts int, delay time.Duration) Option {
	return func(m *ImageMigrator) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			m.retryDelay = delay
		}
	}
}

// WithSleep replaces the wait between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *ImageMigrator) {
		m.sleep = sleep
	}
}

// NewImageMigrator creates an ImageMigrator uploading into store.
// A nil cfg uses the default timeout and retry policy.
func NewImageMigrator(store storage.ObjectStorage, cfg *config.MediaConfig, opts ...Option) *ImageMigrator {
	m := &ImageMigrator{
		storage:     store,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	timeout := 30 * time.Second
	var maxBytes int64
	if cfg != nil {
		if cfg.DownloadTimeout > 0 {
			timeout = cfg.DownloadTimeout
		}
		maxBytes = cfg.MaxImageBytes
		WithRetryPolicy(cfg.MaxAttempts, cfg.RetryDelay)(m)
	}
	m.downloader = NewDownloader(nil, timeout, maxBytes)

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MigrateLogo moves the legacy logo of hosting into object storage and returns the primary image URL.
// An error is returned only when both the logo and the placeholder failed.
func (m *ImageMigrator) MigrateLogo(ctx context.Context, hosting *catalog.Hosting) (*Result, error) {
	log := m.logger.With(zap.String("hosting", hosting.Slug), zap.String("logo", hosting.LogoURL))

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		attempts = attempt
		result, err := m.migrateOnce(ctx, hosting, log)
		if err == nil {
			result.Attempts = attempt
			log.Info("Logo migrated",
				zap.Int("attempt", attempt),
				zap.String("url", result.URL),
				zap.Int("thumbnails", len(result.Thumbnails)),
			)
			return result, nil
		}
		lastErr = err
		log.Warn("Logo migration attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.maxAttempts),
			zap.Error(err),
		)

		if attempt < m.maxAttempts {
			if err := m.sleep(ctx, m.retryDelay); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
	}

	url, err := m.uploadPlaceholder(ctx, hosting)
	if err != nil {
		return nil, fmt.Errorf("logo migration failed after %d attempts (%w) and placeholder failed (%w)",
			attempts, lastErr, err)
	}
	log.Warn("Using placeholder image", zap.String("url", url), zap.NamedError("cause", lastErr))

	return &Result{
		URL:         url,
		Key:         PlaceholderKey(hosting.Slug),
		Format:      FormatPNG,
		Placeholder: true,
		Attempts:    attempts,
		Cause:       lastErr,
	}, nil
}

// migrateOnce is one attempt: download, detect, upload the original, then the thumbnails.
// Only the first three steps can fail the attempt.
func (m *ImageMigrator) migrateOnce(ctx context.Context, hosting *catalog.Hosting, log *zap.Logger) (*Result, error) {
	download, err := m.downloader.Fetch(ctx, hosting.LogoURL)
	if err != nil {
		return nil, err
	}

	format, err := DetectFormat(download.Data, download.ContentType, download.URL)
	if err != nil {
		return nil, err
	}

	key := OriginalKey(hosting.Slug, format)
	url, err := m.storage.Upload(ctx, key, download.Data, m.uploadOptions(format, hosting, VariantOriginal))
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	result := &Result{
		URL:        url,
		Key:        key,
		Format:     format,
		Thumbnails: make(map[int]string, len(ThumbnailSizes)),
	}
	m.uploadThumbnails(ctx, hosting, download.Data, format, result, log)
	return result, nil
}

func (m *ImageMigrator) uploadThumbnails(ctx context.Context, hosting *catalog.Hosting, data []byte, format string, result *Result, log *zap.Logger) {
	fail := func(size int, err error) {
		thumbErr := &ThumbnailError{Size: size, Err: err}
		log.Warn("Thumbnail skipped", zap.Int("size", size), zap.Error(err))
		result.ThumbnailErrors = append(result.ThumbnailErrors, thumbErr)
	}

	img, err := decodeImage(data)
	if err != nil {
		for _, size := range ThumbnailSizes {
			fail(size, err)
		}
		return
	}

	outFormat := ThumbnailFormat(format)
	for _, size := range ThumbnailSizes {
		encoded, err := MakeThumbnail(img, size, outFormat)
		if err != nil {
			fail(size, err)
			continue
		}
		key := ThumbnailKey(hosting.Slug, size, outFormat)
		url, err := m.storage.Upload(ctx, key, encoded, m.uploadOptions(outFormat, hosting, VariantThumbnail))
		if err != nil {
			fail(size, fmt.Errorf("failed to upload %s: %w", key, err))
			continue
		}
		result.Thumbnails[size] = url
	}
}

func (m *ImageMigrator) uploadPlaceholder(ctx context.Context, hosting *catalog.Hosting) (string, error) {
	data, err := RenderPlaceholder(hosting.Slug)
	if err != nil {
		return "", err
	}
	key := PlaceholderKey(hosting.Slug)
	url, err := m.storage.Upload(ctx, key, data, m.uploadOptions(FormatPNG, hosting, VariantPlaceholder))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return url, nil
}

func (m *ImageMigrator) uploadOptions(format string, hosting *catalog.Hosting, variant string) storage.UploadOptions {
	return storage.UploadOptions{
		ContentType:  ContentType(format),
		CacheControl: storage.ImmutableCacheControl,
		Visibility:   storage.VisibilityPublicRead,
		Metadata: map[string]string{
			"hosting-slug": hosting.Slug,
			"source-url":   hosting.LogoURL,
			"variant":      variant,
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
