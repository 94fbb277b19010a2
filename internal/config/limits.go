package config

import "time"

const (
	// DefaultCooldownShort is the first quota cooldown for a primary backend.
	// Free-tier per-minute limits usually clear within a minute.
	DefaultCooldownShort = time.Minute

	// DefaultCooldownLong applies from the second consecutive quota failure.
	// A backend that is still exhausted after a minute has hit its daily cap.
	DefaultCooldownLong = 24 * time.Hour

	// DefaultCooldownTransient applies to transport and malformed-response failures.
	DefaultCooldownTransient = 10 * time.Second

	DefaultGenerationTimeout = 30 * time.Second
	DefaultMediaTimeout      = 8 * time.Second
	DefaultSearchTimeout     = 8 * time.Second
	DefaultStoreTimeout      = 5 * time.Second

	// DefaultHistoryLimit is how many recent turns are replayed as context.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps history reads from the API and CLI.
	MaxHistoryLimit = 500

	// DefaultHistoryRetention is how long turns are kept before the janitor purges them.
	DefaultHistoryRetention = 30 * 24 * time.Hour

	// DefaultJanitorInterval is how often the retention purge runs.
	DefaultJanitorInterval = time.Hour

	// MaxImageBytes is the download ceiling for attached images.
	// Checked against the declared length and the streamed byte count.
	MaxImageBytes = 8 << 20

	// MaxReplyBodyBytes bounds a POST /api/replies body: a base64 image at
	// the ceiling plus room for the other fields. Oversize images inside it
	// reach the assembler and are dropped there.
	MaxReplyBodyBytes = (MaxImageBytes+2)/3*4 + 1<<20

	// MaxImageDimension bounds the long edge of normalized images.
	MaxImageDimension = 1024

	// ImageJPEGQuality is the re-encode quality for normalized images.
	ImageJPEGQuality = 85

	// MaxAudioBytes bounds voice-note downloads sent for transcription.
	MaxAudioBytes = 25 << 20

	// SecondaryMaxTokens caps completions on the secondary pool.
	SecondaryMaxTokens = 256

	// SearchMaxResults is how many search hits are folded into context.
	SearchMaxResults = 2

	// DeliveryChunkLimit is the per-message character budget on the chat platform.
	// Kept below the platform's hard 2000 limit.
	DeliveryChunkLimit = 1900

	// MaxMessageLength bounds inbound text accepted by the API.
	MaxMessageLength = 8000
)
