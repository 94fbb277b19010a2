package adapters

import (
	"context"
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"
	"github.com/haowjy/meridian-llm-go/providers/openrouter"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

const blockTypeText = "text"

// LibraryBackend generates through a meridian-llm-go provider. It is text
// only: an attached image is described by the prompt, not sent.
type LibraryBackend struct {
	name     string
	provider llmprovider.Provider
	model    string
}

func NewLibraryBackend(name string, provider llmprovider.Provider, model string) *LibraryBackend {
	return &LibraryBackend{name: name, provider: provider, model: model}
}

// NewOpenRouterProvider creates the OpenRouter provider.
func NewOpenRouterProvider(apiKey string) (llmprovider.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}
	provider, err := openrouter.NewProvider(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter provider: %w", err)
	}
	return provider, nil
}

// NewAnthropicProvider creates the Anthropic provider.
func NewAnthropicProvider(apiKey string) (llmprovider.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	provider, err := anthropic.NewProvider(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return provider, nil
}

// NewLoremProvider creates the offline lorem ipsum provider used in dev.
func NewLoremProvider() llmprovider.Provider {
	return lorem.NewProvider()
}

// Generate implements services.GenerateFunc.
func (b *LibraryBackend) Generate(ctx context.Context, p *services.Prompt) (string, error) {
	resp, err := b.provider.GenerateResponse(ctx, toLibraryRequest(b.model, p))
	if err != nil {
		return "", wrapError(b.name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%s: %w", b.name, domain.ErrEmptyResponse)
	}
	return fromLibraryResponse(resp), nil
}

// toLibraryRequest maps the prompt onto library messages. The persona leads
// the current message since library params carry no system slot we rely on.
func toLibraryRequest(model string, p *services.Prompt) *llmprovider.GenerateRequest {
	messages := make([]llmprovider.Message, 0, len(p.History)+1)
	for i := range p.History {
		turn := &p.History[i]
		text := turn.Text()
		if text == "" {
			continue
		}
		role := "user"
		if turn.Role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, textMessage(role, text))
	}

	current := p.Message
	if p.System != "" {
		current = p.System + "\n\n" + p.Message
	}
	messages = append(messages, textMessage("user", current))

	return &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    model,
	}
}

func textMessage(role, text string) llmprovider.Message {
	return llmprovider.Message{
		Role: role,
		Blocks: []*llmprovider.Block{{
			BlockType:   blockTypeText,
			TextContent: &text,
		}},
	}
}

func fromLibraryResponse(resp *llmprovider.GenerateResponse) string {
	var b strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != blockTypeText || block.TextContent == nil {
			continue
		}
		b.WriteString(*block.TextContent)
	}
	return b.String()
}
