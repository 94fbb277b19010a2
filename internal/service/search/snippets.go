package search

import (
	"context"
	"fmt"
	"strings"
)

// maxSnippetRunes trims long result bodies so one hit cannot crowd out the prompt.
const maxSnippetRunes = 400

// Snippets adapts a Client to services.SearchProvider, rendering the top
// results as a short bulleted blob.
type Snippets struct {
	client     Client
	maxResults int
}

func NewSnippets(client Client, maxResults int) *Snippets {
	if maxResults <= 0 {
		maxResults = 2
	}
	return &Snippets{client: client, maxResults: maxResults}
}

// Snippet returns "" with a nil error when there are no results.
func (s *Snippets) Snippet(ctx context.Context, query string) (string, error) {
	resp, err := s.client.Search(ctx, query, Options{MaxResults: s.maxResults, Depth: "basic"})
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}

	var b strings.Builder
	for i, r := range resp.Results {
		if i == s.maxResults {
			break
		}
		fmt.Fprintf(&b, "- Title: %s\n  Snippet: %s\n", oneLine(r.Title), truncate(oneLine(r.Snippet), maxSnippetRunes))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
