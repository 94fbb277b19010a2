package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"google.golang.org/genai"

	"yuri/internal/catalog"
	"yuri/internal/config"
	"yuri/internal/domain/services"
	"yuri/internal/service/llm/adapters"
)

// BackendCreatorFunc builds the generate function for one catalog row.
type BackendCreatorFunc func(entry catalog.PrimaryBackend) (services.GenerateFunc, error)

// BackendFactory turns catalog rows into waterfall backends, one creator per
// provider kind. Provider clients are created once and shared across rows.
type BackendFactory struct {
	creators map[string]BackendCreatorFunc
	logger   *slog.Logger
}

// NewBackendFactory registers the gemini, openrouter, anthropic and lorem creators.
func NewBackendFactory(cfg *config.Config, logger *slog.Logger) *BackendFactory {
	f := &BackendFactory{
		creators: make(map[string]BackendCreatorFunc),
		logger:   logger,
	}

	var (
		geminiOnce   sync.Once
		geminiClient *genai.Client
		geminiErr    error
	)
	f.Register(catalog.ProviderGemini, func(e catalog.PrimaryBackend) (services.GenerateFunc, error) {
		geminiOnce.Do(func() {
			geminiClient, geminiErr = adapters.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		})
		if geminiErr != nil {
			return nil, geminiErr
		}
		return adapters.NewGeminiBackend(e.Name, geminiClient.Models, e.Model, e.Vision).Generate, nil
	})

	f.registerLibrary(catalog.ProviderOpenRouter, func() (llmprovider.Provider, error) {
		return adapters.NewOpenRouterProvider(cfg.OpenRouterAPIKey)
	})
	f.registerLibrary(catalog.ProviderAnthropic, func() (llmprovider.Provider, error) {
		return adapters.NewAnthropicProvider(cfg.AnthropicAPIKey)
	})
	f.registerLibrary(catalog.ProviderLorem, func() (llmprovider.Provider, error) {
		return adapters.NewLoremProvider(), nil
	})

	return f
}

func (f *BackendFactory) registerLibrary(kind string, create func() (llmprovider.Provider, error)) {
	var (
		once     sync.Once
		provider llmprovider.Provider
		err      error
	)
	f.Register(kind, func(e catalog.PrimaryBackend) (services.GenerateFunc, error) {
		once.Do(func() { provider, err = create() })
		if err != nil {
			return nil, err
		}
		return adapters.NewLibraryBackend(e.Name, provider, e.Model).Generate, nil
	})
}

// Register adds or replaces the creator for a provider kind.
func (f *BackendFactory) Register(providerName string, creator BackendCreatorFunc) {
	f.creators[providerName] = creator
}

// Build creates backends in catalog order. Rows whose provider cannot be
// created (usually a missing API key) are skipped with a warning.
func (f *BackendFactory) Build(entries []catalog.PrimaryBackend) []services.Backend {
	backends := make([]services.Backend, 0, len(entries))
	for _, e := range entries {
		creator, ok := f.creators[e.Provider]
		if !ok {
			f.logger.Warn("skipping backend",
				"backend", e.Name,
				"error", fmt.Sprintf("unsupported provider: %s (supported: %s)", e.Provider, f.supported()),
			)
			continue
		}

		generate, err := creator(e)
		if err != nil {
			f.logger.Warn("skipping backend", "backend", e.Name, "provider", e.Provider, "error", err)
			continue
		}
		backends = append(backends, services.Backend{Name: e.Name, Generate: generate})
	}

	f.logger.Info("primary backends ready", "count", len(backends), "configured", len(entries))
	return backends
}

func (f *BackendFactory) supported() string {
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
