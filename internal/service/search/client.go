// Package search fetches short web result blobs used as reply context.
package search

import (
	"context"
	"time"
)

// Client is a web search API.
type Client interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// Options configures a search call.
type Options struct {
	MaxResults int    // Maximum number of results to return
	Depth      string // "basic" or "advanced" (Tavily)
	Topic      string // "general", "news", "finance" (Tavily)
}

// Response holds the results of one search.
type Response struct {
	Results   []Result
	Query     string
	Timestamp time.Time
}

// Result is a single hit.
type Result struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt *time.Time
	Score       float64
}
