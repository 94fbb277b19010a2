package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultTenorBaseURL is the Tenor v2 search endpoint
	DefaultTenorBaseURL = "https://tenor.googleapis.com/v2/search"
	// DefaultTenorTimeout is the default HTTP timeout for Tenor requests
	DefaultTenorTimeout = 10 * time.Second
	// tenorCandidates is how many results a pick is made from
	tenorCandidates = 8
)

// ErrNoMedia is returned when a query has no usable results.
var ErrNoMedia = errors.New("no media found")

// TenorClient resolves a reaction query to a GIF URL, picking one of the top
// results at random so repeated queries do not always return the same GIF.
type TenorClient struct {
	apiKey     string
	clientKey  string
	baseURL    string
	httpClient *http.Client
	pick       func(n int) int
}

func NewTenorClient(apiKey string) *TenorClient {
	return NewTenorClientWithConfig(apiKey, DefaultTenorBaseURL, DefaultTenorTimeout)
}

// NewTenorClientWithConfig creates a Tenor client with custom configuration.
func NewTenorClientWithConfig(apiKey, baseURL string, timeout time.Duration) *TenorClient {
	return &TenorClient{
		apiKey:     apiKey,
		clientKey:  "yuri",
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		pick:       rand.IntN,
	}
}

// Lookup implements services.MediaSearcher.
func (c *TenorClient) Lookup(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("client_key", c.clientKey)
	params.Set("limit", strconv.Itoa(tenorCandidates))
	params.Set("media_filter", "gif")
	params.Set("contentfilter", "medium")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tenorResp tenorResponse
	if err := json.Unmarshal(body, &tenorResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	urls := make([]string, 0, len(tenorResp.Results))
	for _, r := range tenorResp.Results {
		if r.MediaFormats.GIF.URL != "" {
			urls = append(urls, r.MediaFormats.GIF.URL)
		}
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("%q: %w", query, ErrNoMedia)
	}
	return urls[c.pick(len(urls))], nil
}

type tenorResponse struct {
	Results []tenorResult `json:"results"`
}

type tenorResult struct {
	ID           string `json:"id"`
	MediaFormats struct {
		GIF struct {
			URL string `json:"url"`
		} `json:"gif"`
	} `json:"media_formats"`
}
