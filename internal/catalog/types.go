package catalog

// Provider kinds understood by the backend factory.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderLorem      = "lorem"
	ProviderGroq       = "groq"
)

// PrimaryBackend is one row of the primary waterfall.
type PrimaryBackend struct {
	Name     string `yaml:"name" json:"name"`
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	Vision   bool   `yaml:"vision" json:"vision"`
}

// Tiers are the secondary pool's model choices.
type Tiers struct {
	Large  string `yaml:"large" json:"large"`
	Vision string `yaml:"vision" json:"vision"`
	Small  string `yaml:"small" json:"small"`
}

// Secondary describes the credential-pooled fallback provider.
type Secondary struct {
	Provider      string `yaml:"provider" json:"provider"`
	MaxTokens     int    `yaml:"max_tokens" json:"max_tokens"`
	Tiers         Tiers  `yaml:"tiers" json:"tiers"`
	Transcription string `yaml:"transcription" json:"transcription"`
}

// Backends is the whole catalog document.
type Backends struct {
	Primary   []PrimaryBackend `yaml:"primary" json:"primary"`
	Secondary Secondary        `yaml:"secondary" json:"secondary"`
}
