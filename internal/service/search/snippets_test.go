package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	resp *Response
	err  error
	opts Options
}

func (s *stubClient) Search(_ context.Context, _ string, opts Options) (*Response, error) {
	s.opts = opts
	return s.resp, s.err
}

func TestSnippets_Format(t *testing.T) {
	stub := &stubClient{resp: &Response{Results: []Result{
		{Title: "Delhi weather", Snippet: "Sunny,\n 31C   today"},
		{Title: "Forecast", Snippet: strings.Repeat("a", 500)},
		{Title: "ignored", Snippet: "third"},
	}}}

	got, err := NewSnippets(stub, 2).Snippet(context.Background(), "weather delhi")
	require.NoError(t, err)

	assert.Equal(t, 2, stub.opts.MaxResults)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "- Title: Delhi weather", lines[0])
	assert.Equal(t, "  Snippet: Sunny, 31C today", lines[1])
	assert.Equal(t, "  Snippet: "+strings.Repeat("a", 400)+"…", lines[3])
	assert.NotContains(t, got, "ignored")
}

func TestSnippets_Empty(t *testing.T) {
	got, err := NewSnippets(&stubClient{resp: &Response{}}, 2).Snippet(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnippets_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewSnippets(&stubClient{err: boom}, 2).Snippet(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestTavilyClient_Search(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"query":"q","results":[
			{"title":"A","url":"https://a.example","content":"alpha","score":0.9,"published_date":"2025-01-02T03:04:05Z"},
			{"title":"B","url":"https://b.example","content":"beta","score":0.5}
		]}`))
	}))
	defer srv.Close()

	c := NewTavilyClientWithConfig("tv-key", srv.URL, time.Second)
	resp, err := c.Search(context.Background(), "q", Options{MaxResults: 50, Depth: "basic"})
	require.NoError(t, err)

	assert.Equal(t, "tv-key", payload["api_key"])
	assert.Equal(t, float64(20), payload["max_results"], "capped at 20")
	assert.Equal(t, "basic", payload["search_depth"])

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "alpha", resp.Results[0].Snippet)
	require.NotNil(t, resp.Results[0].PublishedAt)
	assert.Equal(t, 2025, resp.Results[0].PublishedAt.Year())
	assert.Nil(t, resp.Results[1].PublishedAt)
}

func TestTavilyClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`invalid key`))
	}))
	defer srv.Close()

	_, err := NewTavilyClientWithConfig("bad", srv.URL, time.Second).Search(context.Background(), "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
