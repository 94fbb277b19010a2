package services

import (
	"context"

	"yuri/internal/domain/models"
)

// MediaFetcher downloads a URL, enforcing a byte ceiling.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// SearchProvider returns a short text blob of web results for a query.
// An empty string with a nil error means nothing useful was found.
type SearchProvider interface {
	Snippet(ctx context.Context, query string) (string, error)
}

// MediaSearcher resolves a media directive query to a media URL.
type MediaSearcher interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ImageNormalizer decodes arbitrary image bytes into the canonical attachment format.
type ImageNormalizer interface {
	Normalize(data []byte) (*models.Image, error)
}
