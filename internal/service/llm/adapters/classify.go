// Package adapters turns provider SDKs into primary waterfall backends.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"yuri/internal/domain"
)

// quotaMarkers are the fragments providers put in quota and overload errors
// when they do not expose a typed status.
var quotaMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
	"overloaded",
	"service unavailable",
}

// quotaStatus matches 429 or 503 only where it reads as a status code
// ("status 429", "code: 503", "Error 429,", "HTTP/1.1 503"), not as a
// request ID or a byte count.
var quotaStatus = regexp.MustCompile(`(?i)\b(?:status[\s_]*(?:code)?|code|error|http(?:/[\d.]+)?)\s*"?\s*[:=]?\s*"?(?:429|503)\b`)

// wrapError tags err with the backend name, marking quota failures with
// domain.ErrRateLimited so the breaker escalates them.
func wrapError(backend string, err error) error {
	if errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", backend, err)
	}
	if looksLikeQuota(err.Error()) {
		return fmt.Errorf("%s: %w: %w", backend, domain.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", backend, err)
}

func looksLikeQuota(msg string) bool {
	if quotaStatus.MatchString(msg) {
		return true
	}
	msg = strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
