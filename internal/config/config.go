package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	JWKSURL     string

	// Provider credentials
	GeminiAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	GroqAPIKeys      []string // GROQ_API_KEY, GROQ_API_KEY_2, ... in order
	GroqBaseURL      string
	TavilyAPIKey     string
	TenorAPIKey      string

	// Chat platform
	DiscordToken string
	OwnerID      string

	// Prompt and backend catalog overrides (empty = embedded defaults)
	PersonaFile  string
	BackendsFile string

	LogDir string

	// Circuit breaker windows
	CooldownShort     time.Duration
	CooldownLong      time.Duration
	CooldownTransient time.Duration

	// External call budgets
	GenerationTimeout time.Duration
	MediaTimeout      time.Duration
	SearchTimeout     time.Duration
	StoreTimeout      time.Duration

	HistoryLimit     int
	HistoryRetention time.Duration
	MaxImageBytes    int64

	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		JWKSURL:     getEnv("AUTH_JWKS_URL", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GroqAPIKeys:      getNumberedKeys("GROQ_API_KEY"),
		GroqBaseURL:      getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		TavilyAPIKey:     getEnv("TAVILY_API_KEY", ""),
		TenorAPIKey:      getEnv("TENOR_API_KEY", ""),

		DiscordToken: getEnv("DISCORD_TOKEN", ""),
		OwnerID:      getEnv("OWNER_ID", ""),

		PersonaFile:  getEnv("PERSONA_FILE", ""),
		BackendsFile: getEnv("BACKENDS_FILE", ""),
		LogDir:       getEnv("LOG_DIR", ""),

		CooldownShort:     getDuration("COOLDOWN_SHORT", DefaultCooldownShort),
		CooldownLong:      getDuration("COOLDOWN_LONG", DefaultCooldownLong),
		CooldownTransient: getDuration("COOLDOWN_TRANSIENT", DefaultCooldownTransient),

		GenerationTimeout: getDuration("GENERATION_TIMEOUT", DefaultGenerationTimeout),
		MediaTimeout:      getDuration("MEDIA_TIMEOUT", DefaultMediaTimeout),
		SearchTimeout:     getDuration("SEARCH_TIMEOUT", DefaultSearchTimeout),
		StoreTimeout:      getDuration("STORE_TIMEOUT", DefaultStoreTimeout),

		HistoryLimit:     getInt("HISTORY_LIMIT", DefaultHistoryLimit),
		HistoryRetention: getDuration("HISTORY_RETENTION", DefaultHistoryRetention),
		MaxImageBytes:    int64(getInt("MAX_IMAGE_BYTES", MaxImageBytes)),

		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Validate checks the settings every entry point depends on.
// Credentials are optional: a missing key only removes its backend.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.CooldownShort, validation.Required),
		validation.Field(&c.CooldownLong, validation.Required, validation.Min(c.CooldownShort+1).Error("must be longer than COOLDOWN_SHORT")),
		validation.Field(&c.CooldownTransient, validation.Required),
		validation.Field(&c.GenerationTimeout, validation.Required),
		validation.Field(&c.StoreTimeout, validation.Required),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1), validation.Max(MaxHistoryLimit)),
		validation.Field(&c.MaxImageBytes, validation.Required, validation.Min(int64(1)), validation.Max(int64(MaxImageBytes))),
	)
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

// getNumberedKeys collects KEY, KEY_2, KEY_3, ... sorted by suffix.
// Gaps are allowed so operators can retire a key without renumbering.
func getNumberedKeys(base string) []string {
	type numbered struct {
		n   int
		key string
	}

	var found []numbered
	if v := strings.TrimSpace(os.Getenv(base)); v != "" {
		found = append(found, numbered{n: 1, key: v})
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, base+"_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, base+"_"))
		if err != nil || n < 2 {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			found = append(found, numbered{n: n, key: value})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	keys := make([]string, 0, len(found))
	for _, f := range found {
		keys = append(keys, f.key)
	}
	return keys
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
