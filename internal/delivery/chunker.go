// Package delivery splits replies into platform-sized segments and sends them.
package delivery

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// Target is a conversation the reply goes back to.
type Target interface {
	// Reply sends text as a reply to the triggering message, mentioning its author.
	Reply(ctx context.Context, text string) error
	// Send posts text to the conversation.
	Send(ctx context.Context, text string) error
}

// Split cuts text into segments of at most limit runes. Joining the segments
// gives back text exactly; words may be cut.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var segments []string
	start, count := 0, 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		count++
		if count == limit {
			segments = append(segments, text[start:i])
			start, count = i, 0
		}
	}
	if start < len(text) {
		segments = append(segments, text[start:])
	}
	return segments
}

// Chunker delivers long text as ordered segments.
type Chunker struct {
	limit  int
	logger *slog.Logger
}

func NewChunker(limit int, logger *slog.Logger) *Chunker {
	return &Chunker{limit: limit, logger: logger}
}

// Deliver sends every segment of text in order and returns how many arrived.
// The first segment is a reply, falling back to a plain send; the rest are
// plain sends. A failed segment is logged and the next one is still attempted.
func (c *Chunker) Deliver(ctx context.Context, target Target, text string) int {
	delivered := 0
	for i, segment := range Split(text, c.limit) {
		var err error
		if i == 0 {
			if err = target.Reply(ctx, segment); err != nil {
				c.logger.Warn("reply failed, sending instead", "error", err)
				err = target.Send(ctx, segment)
			}
		} else {
			err = target.Send(ctx, segment)
		}

		if err != nil {
			c.logger.Warn("segment delivery failed", "segment", i, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
