// Package media downloads attachments, normalizes images and resolves
// reaction media queries.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"yuri/internal/domain"
)

// DefaultDownloadTimeout bounds a single attachment download.
const DefaultDownloadTimeout = 15 * time.Second

// Downloader fetches attachment bytes over HTTP with a size ceiling.
type Downloader struct {
	httpClient *http.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Downloader{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch returns the body of url. A declared Content-Length over maxBytes is
// rejected before the body is read; an undeclared body is cut off at maxBytes+1
// and rejected the same way. maxBytes <= 0 disables the ceiling.
func (d *Downloader) Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed (status %d)", resp.StatusCode)
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("declared %d bytes, limit %d: %w", resp.ContentLength, maxBytes, domain.ErrMediaTooLarge)
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes: %w", maxBytes, domain.ErrMediaTooLarge)
	}
	return data, nil
}
