// Package media migrates hosting logos into object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "hostcatalog-migrator/1.0"

// ErrEmptyBody is returned when a download succeeds with a zero-length body
var ErrEmptyBody = errors.New("downloaded image is empty")

// Download is a fetched remote asset
type Download struct {
	URL         string
	ContentType string
	Data        []byte
}

// Downloader fetches images over HTTP
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a Downloader with the given per-request timeout and body limit.
// A nil client uses http.DefaultTransport.
func NewDownloader(client *http.Client, timeout time.Duration, maxBytes int64) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{client: client, maxBytes: maxBytes}
}

// Fetch downloads url. Non-2xx responses, oversized bodies and empty bodies are errors.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url %q: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download %s: unexpected status %d", url, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", url, d.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", url, ErrEmptyBody)
	}

	return &Download{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
