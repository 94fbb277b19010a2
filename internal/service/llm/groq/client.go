// Package groq calls Groq's OpenAI-compatible API through the openai-go SDK.
// The API key is passed per call so a caller can rotate credentials.
package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"yuri/internal/domain"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint root
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultTimeout bounds a single HTTP exchange
	DefaultTimeout = 30 * time.Second
)

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("groq API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }

// Is lets errors.Is(err, domain.ErrRateLimited) match quota and overload responses.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited &&
		(e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable)
}

// Client calls chat completions and audio transcriptions.
type Client struct {
	api openai.Client
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty).
// SDK retries are off: the caller rotates credentials instead.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		api: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(""),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(timeout),
		),
	}
}

// Complete returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, apiKey string, req *ChatRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toParams(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices: %w", req.Model, domain.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe uploads audio as multipart form data and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, apiKey string, req *TranscriptionRequest) (string, error) {
	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(req.Audio), req.Filename, "application/octet-stream"),
		Model:          openai.AudioModel(req.Model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}, option.WithAPIKey(apiKey))
	if err != nil {
		return "", wrapError(err)
	}
	return resp.Text, nil
}

func toParams(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Text))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Text))
		default:
			if len(m.Parts) == 0 {
				out = append(out, openai.UserMessage(m.Text))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Parts))
			for _, p := range m.Parts {
				if p.ImageURL != "" {
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: p.ImageURL}))
					continue
				}
				parts = append(parts, openai.TextContentPart(p.Text))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, err: err}
	}
	return fmt.Errorf("request failed: %w", err)
}
