package reply

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

// mediaDirective matches [GIF: query] tags, case-insensitively.
var mediaDirective = regexp.MustCompile(`(?i)\[GIF:\s*(.*?)\]`)

// PostProcessor turns raw model output into a deliverable result.
type PostProcessor struct {
	media   services.MediaSearcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewPostProcessor creates a post-processor. media may be nil to disable lookups.
func NewPostProcessor(media services.MediaSearcher, timeout time.Duration, logger *slog.Logger) *PostProcessor {
	return &PostProcessor{media: media, timeout: timeout, logger: logger}
}

// Process strips every media tag from raw and resolves the first one.
// A failed lookup yields no media; empty display text is valid.
func (p *PostProcessor) Process(ctx context.Context, raw string) (string, string) {
	match := mediaDirective.FindStringSubmatch(raw)
	if match == nil {
		return strings.TrimSpace(raw), ""
	}

	display := strings.TrimSpace(mediaDirective.ReplaceAllString(raw, ""))
	query := strings.TrimSpace(match[1])
	if query == "" || p.media == nil {
		return display, ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ref, err := p.media.Lookup(lookupCtx, query)
	if err != nil {
		p.logger.Warn("media lookup failed", "query", query, "error", err)
		return display, ""
	}
	return display, ref
}

// Result wraps Process into a GenerationResult.
func (p *PostProcessor) Result(ctx context.Context, raw, backend string, degraded bool) *models.GenerationResult {
	display, ref := p.Process(ctx, raw)
	return &models.GenerationResult{
		DisplayText:    display,
		MediaReference: ref,
		Backend:        backend,
		Degraded:       degraded,
	}
}
