package reply

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"yuri/internal/catalog"
	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/service/llm/groq"
)

// DegradedMessage is returned verbatim when every provider is exhausted.
const DegradedMessage = "The AI is **down** rn, wait for about **12 hours** (Rate Limits reached)."

// ChatClient is the secondary provider's API, called with an explicit credential.
type ChatClient interface {
	Complete(ctx context.Context, apiKey string, req *groq.ChatRequest) (string, error)
	Transcribe(ctx context.Context, apiKey string, req *groq.TranscriptionRequest) (string, error)
}

// CredentialPool is a round-robin set of API keys. The cursor only moves
// forward and the index is the cursor modulo the pool size.
type CredentialPool struct {
	keys   []string
	cursor atomic.Uint64
}

// NewCredentialPool keeps the non-empty keys in order.
func NewCredentialPool(keys []string) *CredentialPool {
	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	return &CredentialPool{keys: kept}
}

func (p *CredentialPool) Size() int { return len(p.keys) }

// Index is the position of the credential the next attempt will use.
func (p *CredentialPool) Index() int {
	if len(p.keys) == 0 {
		return 0
	}
	return int(p.cursor.Load() % uint64(len(p.keys)))
}

func (p *CredentialPool) current() (uint64, string) {
	c := p.cursor.Load()
	return c, p.keys[c%uint64(len(p.keys))]
}

// rotate advances past the credential read at cursor. When a concurrent
// request already rotated away from it, the cursor is left alone.
func (p *CredentialPool) rotate(cursor uint64) bool {
	return p.cursor.CompareAndSwap(cursor, cursor+1)
}

// SecondaryPool is the last-resort provider: a model tier choice on top of
// a rotating credential pool, bounded at pool size + 1 attempts.
type SecondaryPool struct {
	creds              *CredentialPool
	client             ChatClient
	tiers              catalog.Tiers
	maxTokens          int
	transcriptionModel string
	timeout            time.Duration
	logger             *slog.Logger
}

// NewSecondaryPool builds the pool from the catalog's secondary entry.
func NewSecondaryPool(creds *CredentialPool, client ChatClient, cfg catalog.Secondary, timeout time.Duration, logger *slog.Logger) *SecondaryPool {
	return &SecondaryPool{
		creds:              creds,
		client:             client,
		tiers:              cfg.Tiers,
		maxTokens:          cfg.MaxTokens,
		transcriptionModel: cfg.Transcription,
		timeout:            timeout,
		logger:             logger,
	}
}

// Generate returns the first successful completion and the model that produced it.
// ok is false when every attempt failed; text is then DegradedMessage.
func (p *SecondaryPool) Generate(ctx context.Context, prompt *services.Prompt) (text, model string, ok bool) {
	if p.creds.Size() == 0 {
		p.logger.Warn("secondary pool has no credentials")
		return DegradedMessage, "", false
	}

	messages := buildChatMessages(prompt)
	primaryTier := p.tiers.Large
	if prompt.HasImage() {
		primaryTier = p.tiers.Vision
	}

	attempts := p.creds.Size() + 1
	for i := 0; i < attempts; i++ {
		cursor, key := p.creds.current()
		index := int(cursor % uint64(p.creds.Size()))

		text, err := p.complete(ctx, key, primaryTier, messages)
		if err == nil {
			return text, primaryTier, true
		}
		p.logger.Warn("secondary tier failed", "model", primaryTier, "credential", index, "error", err)

		if !prompt.HasImage() {
			text, err = p.complete(ctx, key, p.tiers.Small, messages)
			if err == nil {
				return text, p.tiers.Small, true
			}
			p.logger.Warn("secondary small tier failed", "model", p.tiers.Small, "credential", index, "error", err)
		}

		if p.creds.rotate(cursor) {
			p.logger.Info("rotated secondary credential", "from", index, "to", p.creds.Index())
		}
	}

	return DegradedMessage, "", false
}

func (p *SecondaryPool) complete(ctx context.Context, key, model string, messages []groq.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.client.Complete(callCtx, key, &groq.ChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

// Transcribe converts a voice note with the same rotation and attempt bound as Generate.
func (p *SecondaryPool) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if p.creds.Size() == 0 {
		return "", errors.New("transcription unavailable: no credentials")
	}

	var lastErr error
	for i := 0; i < p.creds.Size()+1; i++ {
		cursor, key := p.creds.current()

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		text, err := p.client.Transcribe(callCtx, key, &groq.TranscriptionRequest{
			Model:    p.transcriptionModel,
			Filename: filename,
			Audio:    audio,
		})
		cancel()

		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		p.logger.Warn("transcription failed", "credential", int(cursor%uint64(p.creds.Size())), "error", err)
		p.creds.rotate(cursor)
	}
	return "", fmt.Errorf("transcribe: %w", lastErr)
}

// Status reports the pool size and the credential the next call will use.
func (p *SecondaryPool) Status() models.PoolStatus {
	return models.PoolStatus{Size: p.creds.Size(), CurrentIndex: p.creds.Index()}
}

// buildChatMessages maps the prompt onto OpenAI-style chat roles.
func buildChatMessages(prompt *services.Prompt) []groq.ChatMessage {
	messages := make([]groq.ChatMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, groq.ChatMessage{Role: "system", Text: prompt.System})
	}

	for i := range prompt.History {
		turn := &prompt.History[i]
		text := turn.Text()
		if text == "" {
			continue
		}
		role := "user"
		if turn.Role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, groq.ChatMessage{Role: role, Text: text})
	}

	if prompt.HasImage() {
		dataURI := "data:" + prompt.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(prompt.Image.Data)
		messages = append(messages, groq.ChatMessage{
			Role: "user",
			Parts: []groq.ContentPart{
				{Text: prompt.Message},
				{ImageURL: dataURI},
			},
		})
	} else {
		messages = append(messages, groq.ChatMessage{Role: "user", Text: prompt.Message})
	}

	return messages
}
