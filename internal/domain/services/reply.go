package services

import (
	"context"

	"yuri/internal/domain/models"
)

// ReplyRequest is one inbound turn from the command layer.
// Override is mutually exclusive with Text, ImageURL, Image and AudioURL.
type ReplyRequest struct {
	UserID   string           `json:"user_id"`
	Text     string           `json:"text,omitempty"`
	ImageURL string           `json:"image_url,omitempty"`
	AudioURL string           `json:"audio_url,omitempty"`
	Override *models.Override `json:"override,omitempty"`

	// Image carries already-downloaded bytes; it is normalized like a fetched URL.
	Image []byte `json:"-"`
	// AudioFilename hints the transcription format (e.g. "voice.ogg").
	AudioFilename string `json:"-"`
}

// Responder produces a reply for one inbound turn.
type Responder interface {
	// Respond never returns an error for provider failures: exhaustion yields
	// a degraded result. Only request validation errors are returned.
	Respond(ctx context.Context, req *ReplyRequest) (*models.GenerationResult, error)
}

// Prompt is the assembled request. It is built once per turn and reused
// unchanged across every backend attempt.
type Prompt struct {
	// System is the persona text
	System string
	// History holds recent turns, oldest first, with user text already sanitized
	History []models.Turn
	// Message is the composed current turn: context fragments plus wrapped user text or the override
	Message string
	// Image is the normalized attachment, nil when absent or dropped
	Image *models.Image
	// Override marks a synthetic prompt whose turns are not persisted
	Override bool
	// VoiceNote is the formatted transcript appended to the user's text, empty when none
	VoiceNote string
}

// HasImage reports whether an image survived normalization.
func (p *Prompt) HasImage() bool { return p.Image != nil && len(p.Image.Data) > 0 }

// GenerateFunc calls one backend and returns its raw text.
// Quota failures wrap domain.ErrRateLimited.
type GenerateFunc func(ctx context.Context, p *Prompt) (string, error)

// Backend is one row of the primary waterfall table.
type Backend struct {
	Name     string
	Generate GenerateFunc
}
