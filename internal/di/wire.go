//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FolioFeed/pkg/config"
	"FolioFeed/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisStore,
		ProvideArticleStore,
		ProvideArticlePublisher,

		// Upstream providers
		ProvideProviderLimiter,
		ProvideUsage,
		ProvideHTTPClient,
		ProvideFetchClient,
		ProvideFinnhub,
		ProvideQuoteProviders,
		ProvideNewsProviders,
		ProvideIntentExtractor,

		// Caches
		ProvideCacheOptions,
		ProvideQuoteCache,
		ProvideSymbolCache,
		ProvideValidationCache,
		ProvideNewsCache,

		// Domain services
		ProvideFallbackChain,
		ProvideValidator,
		ProvideResolver,
		ProvideRelevanceEngine,
		ProvideRanker,

		// Use cases
		ProvideQuoteService,
		ProvideSymbolService,
		ProvideNewsService,
		ProvidePortfolioService,
		ProvideServices,

		// Application server
		ProvideAPILimiter,
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
