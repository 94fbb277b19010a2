package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

// ContentGenerator is the slice of the genai client a Gemini backend uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiBackend generates with one Gemini model.
type GeminiBackend struct {
	name   string
	models ContentGenerator
	model  string
	vision bool
}

func NewGeminiBackend(name string, models ContentGenerator, model string, vision bool) *GeminiBackend {
	return &GeminiBackend{name: name, models: models, model: model, vision: vision}
}

// safetySettings turns every adjustable filter off; the persona is
// trusted to stay in bounds.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// Generate implements services.GenerateFunc.
func (b *GeminiBackend) Generate(ctx context.Context, p *services.Prompt) (string, error) {
	config := &genai.GenerateContentConfig{SafetySettings: safetySettings}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := b.models.GenerateContent(ctx, b.model, b.contents(p), config)
	if err != nil {
		if isGeminiQuota(err) {
			return "", fmt.Errorf("%s: %w: %w", b.name, domain.ErrRateLimited, err)
		}
		return "", wrapError(b.name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%s: %w", b.name, domain.ErrEmptyResponse)
	}
	return resp.Text(), nil
}

func (b *GeminiBackend) contents(p *services.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(p.History)+1)
	for i := range p.History {
		turn := &p.History[i]
		text := turn.Text()
		if text == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if turn.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(p.Message)}
	if b.vision && p.HasImage() {
		parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

// isGeminiQuota reports 429/503 API errors and their RPC status names.
func isGeminiQuota(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiQuotaStatus(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiQuotaStatus(apiErrPtr.Code, apiErrPtr.Status)
	}
	return false
}

func geminiQuotaStatus(code int, status string) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	switch strings.ToUpper(status) {
	case "RESOURCE_EXHAUSTED", "UNAVAILABLE":
		return true
	}
	return false
}
