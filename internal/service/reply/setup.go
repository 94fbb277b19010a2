package reply

import (
	"log/slog"

	"yuri/internal/catalog"
	"yuri/internal/config"
	"yuri/internal/domain/repositories"
	"yuri/internal/domain/services"
	"yuri/internal/service/llm"
	"yuri/internal/service/llm/groq"
	"yuri/internal/service/media"
	"yuri/internal/service/search"
)

// Setup wires the reply service from configuration and the backend catalog.
// Optional collaborators without credentials (search, media lookup) are left
// out and their steps are skipped.
func Setup(
	cfg *config.Config,
	backends *catalog.Backends,
	persona string,
	turns repositories.TurnStore,
	flags repositories.FlagStore,
	logger *slog.Logger,
) *Service {
	primary := llm.NewBackendFactory(cfg, logger).Build(backends.Primary)
	if len(primary) == 0 {
		logger.Warn("no primary backends available, replies go straight to the secondary pool")
	}

	waterfall := NewWaterfall(primary, CooldownPolicy{
		Short:     cfg.CooldownShort,
		Long:      cfg.CooldownLong,
		Transient: cfg.CooldownTransient,
	}, cfg.GenerationTimeout, logger)

	creds := NewCredentialPool(cfg.GroqAPIKeys)
	if creds.Size() == 0 {
		logger.Warn("GROQ_API_KEY not set - secondary pool and voice notes not available")
	}
	secondary := NewSecondaryPool(
		creds,
		groq.NewClient(cfg.GroqBaseURL, cfg.GenerationTimeout),
		backends.Secondary,
		cfg.GenerationTimeout,
		logger,
	)

	var searchProvider services.SearchProvider
	if cfg.TavilyAPIKey != "" {
		client := search.NewTavilyClientWithConfig(cfg.TavilyAPIKey, search.DefaultTavilyBaseURL, cfg.SearchTimeout)
		searchProvider = search.NewSnippets(client, config.SearchMaxResults)
	} else {
		logger.Warn("TAVILY_API_KEY not set - web search context disabled")
	}

	var mediaSearcher services.MediaSearcher
	if cfg.TenorAPIKey != "" {
		mediaSearcher = media.NewTenorClientWithConfig(cfg.TenorAPIKey, media.DefaultTenorBaseURL, cfg.MediaTimeout)
	} else {
		logger.Warn("TENOR_API_KEY not set - media directives are stripped without lookup")
	}

	assembler := NewAssembler(AssemblerConfig{
		Persona:       persona,
		OwnerID:       cfg.OwnerID,
		HistoryLimit:  cfg.HistoryLimit,
		MaxImageBytes: cfg.MaxImageBytes,
		MaxAudioBytes: config.MaxAudioBytes,
		MediaTimeout:  cfg.MediaTimeout,
		SearchTimeout: cfg.SearchTimeout,
		StoreTimeout:  cfg.StoreTimeout,
	}, AssemblerDeps{
		History:     turns,
		Flags:       flags,
		Fetcher:     media.NewDownloader(cfg.MediaTimeout),
		Normalizer:  media.NewNormalizer(config.MaxImageDimension, config.ImageJPEGQuality),
		Search:      searchProvider,
		Transcriber: secondary,
	}, logger)

	post := NewPostProcessor(mediaSearcher, cfg.MediaTimeout, logger)

	logger.Info("reply service initialized",
		"primary_backends", waterfall.Len(),
		"secondary_credentials", creds.Size(),
		"search", searchProvider != nil,
		"media_lookup", mediaSearcher != nil,
	)

	return NewService(assembler, waterfall, secondary, post, turns, cfg.StoreTimeout, logger)
}
