package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/service/llm/groq"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errQuota = fmt.Errorf("quota exceeded: %w", domain.ErrRateLimited)

// scriptedBackend returns its queued outcomes in order, repeating the last one.
type scriptedBackend struct {
	mu       sync.Mutex
	name     string
	outcomes []outcome
	calls    int
	prompts  []*services.Prompt
}

type outcome struct {
	text string
	err  error
}

func newBackend(name string, outcomes ...outcome) *scriptedBackend {
	return &scriptedBackend{name: name, outcomes: outcomes}
}

func (b *scriptedBackend) backend() services.Backend {
	return services.Backend{Name: b.name, Generate: b.generate}
}

func (b *scriptedBackend) generate(_ context.Context, p *services.Prompt) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prompts = append(b.prompts, p)
	i := b.calls
	b.calls++
	if len(b.outcomes) == 0 {
		return "", errors.New("no outcome scripted")
	}
	if i >= len(b.outcomes) {
		i = len(b.outcomes) - 1
	}
	return b.outcomes[i].text, b.outcomes[i].err
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeChat answers per (key, model) pair; anything unscripted fails with a quota error.
type fakeChat struct {
	mu      sync.Mutex
	answers map[string]string
	calls   []chatCall
}

type chatCall struct {
	key   string
	model string
	req   *groq.ChatRequest
}

func newFakeChat() *fakeChat {
	return &fakeChat{answers: make(map[string]string)}
}

func (f *fakeChat) answer(key, model, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[key+"|"+model] = text
}

func (f *fakeChat) Complete(_ context.Context, key string, req *groq.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, chatCall{key: key, model: req.Model, req: req})
	if text, ok := f.answers[key+"|"+req.Model]; ok {
		return text, nil
	}
	return "", &groq.StatusError{StatusCode: 429, Message: "rate limited"}
}

func (f *fakeChat) Transcribe(_ context.Context, key string, req *groq.TranscriptionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, chatCall{key: key, model: req.Model})
	if text, ok := f.answers[key+"|"+req.Model]; ok {
		return text, nil
	}
	return "", &groq.StatusError{StatusCode: 429, Message: "rate limited"}
}

func (f *fakeChat) callLog() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.calls...)
}

// fakeFetcher serves canned bodies and enforces the byte ceiling like the real downloader.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	sizes  map[string]int64
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, maxBytes int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.urls = append(f.urls, url)
	if size, ok := f.sizes[url]; ok && maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%s declares %d bytes: %w", url, size, domain.ErrMediaTooLarge)
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return body, nil
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(data []byte) (*models.Image, error) {
	if string(data) == "not-an-image" {
		return nil, domain.ErrUnsupportedMedia
	}
	return &models.Image{Data: data, MIMEType: "image/jpeg"}, nil
}

type fakeSearch struct {
	mu      sync.Mutex
	snippet string
	err     error
	queries []string
}

func (f *fakeSearch) Snippet(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.snippet, f.err
}

func (f *fakeSearch) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeMedia struct {
	mu      sync.Mutex
	refs    map[string]string
	queries []string
}

func (f *fakeMedia) Lookup(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if ref, ok := f.refs[query]; ok {
		return ref, nil
	}
	return "", errors.New("no results")
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

var testPolicy = CooldownPolicy{Short: time.Minute, Long: 24 * time.Hour, Transient: 10 * time.Second}
