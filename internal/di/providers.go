package di

import (
	"context"
	"fmt"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/internal/domain/service"
	"FolioFeed/internal/handler/api"
	internalrepo "FolioFeed/internal/repository"
	"FolioFeed/internal/service/fallback"
	"FolioFeed/internal/service/fetch"
	"FolioFeed/internal/service/finnhub"
	"FolioFeed/internal/service/gemini"
	"FolioFeed/internal/service/ratelimit"
	"FolioFeed/internal/service/rss"
	"FolioFeed/internal/service/yahoo"
	"FolioFeed/internal/services/relevance"
	"FolioFeed/internal/services/resolver"
	"FolioFeed/internal/services/scoring"
	"FolioFeed/internal/usecase"
	"FolioFeed/pkg/cache"
	pkgch "FolioFeed/pkg/clickhouse"
	"FolioFeed/pkg/config"
	xhttp "FolioFeed/pkg/http"
	"FolioFeed/pkg/http/middleware"
	pkgkafka "FolioFeed/pkg/kafka"
	applogger "FolioFeed/pkg/logger"
	"FolioFeed/pkg/metrics"
	"FolioFeed/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer. Returns nil when no brokers
// are configured; publishing and log shipping are then disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the process logger. Error digests are shipped to Kafka
// when both a producer and a topic exist.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Log.ErrorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        "foliofeed",
			TimeInterval:   cfg.Log.FlushInterval,
			CountThreshold: cfg.Log.CountThreshold,
			Topic:          cfg.Log.ErrorTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder. Call once per process.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideProviderLimiter spaces calls per upstream provider.
func ProvideProviderLimiter(cfg *config.Config) *ratelimit.Limiter {
	l := ratelimit.New(cfg.Providers.Finnhub.MinInterval)
	l.SetInterval(finnhub.ProviderName, cfg.Providers.Finnhub.MinInterval)
	l.SetInterval(yahoo.ProviderName, cfg.Providers.Yahoo.MinInterval)
	l.SetInterval(rss.ProviderName, cfg.Providers.RSS.MinInterval)
	return l
}

// ProvideAPILimiter is the per-client token bucket in front of the HTTP API.
func ProvideAPILimiter(cfg *config.Config) middleware.Allower {
	return ratelimit.NewBucket(cfg.API.RateLimit.Capacity, cfg.API.RateLimit.RefillPerSecond)
}

func ProvideUsage(cfg *config.Config) *fetch.Usage {
	return fetch.NewUsage(cfg.Fetch.UsageWindow, time.Now)
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Providers.HTTPTimeout),
		xhttp.WithUserAgent(cfg.Providers.UserAgent),
	)
}

func ProvideFetchClient(
	client *xhttp.Client,
	limiter *ratelimit.Limiter,
	usage *fetch.Usage,
	rec *metrics.Recorder,
	l *applogger.Logger,
	cfg *config.Config,
) *fetch.Client {
	return fetch.NewClient(client, limiter, usage, rec, l.Component("fetch"), fetch.Config{
		MaxAttempts:  cfg.Fetch.MaxAttempts,
		BaseBackoff:  cfg.Fetch.BaseBackoff,
		MaxBackoff:   cfg.Fetch.MaxBackoff,
		NetworkDelay: cfg.Fetch.NetworkDelay,
	})
}

func ProvideFinnhub(fc *fetch.Client, cfg *config.Config) *finnhub.Client {
	return finnhub.New(fc, cfg.Providers.Finnhub.APIKey, cfg.Providers.Finnhub.BaseURL)
}

// ProvideQuoteProviders orders quote sources: Finnhub first, Yahoo as fallback.
func ProvideQuoteProviders(fh *finnhub.Client, fc *fetch.Client, cfg *config.Config) []repository.QuoteProvider {
	providers := []repository.QuoteProvider{fh}
	if cfg.Providers.Yahoo.Enabled {
		providers = append(providers, yahoo.New(fc, cfg.Providers.Yahoo.BaseURL))
	}
	return providers
}

// ProvideNewsProviders orders news sources: Finnhub first, RSS as fallback.
func ProvideNewsProviders(fh *finnhub.Client, fc *fetch.Client, cfg *config.Config) []repository.NewsProvider {
	providers := []repository.NewsProvider{fh}
	if cfg.Providers.RSS.Enabled {
		providers = append(providers, rss.New(fc, cfg.Providers.RSS.BaseURL))
	}
	return providers
}

// ProvideRedisStore connects the shared cache tier. Returns nil when Redis is
// disabled.
func ProvideRedisStore(cfg *config.Config) (*cache.RedisStore, error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	store, err := cache.NewRedisStore(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return store, nil
}

// CacheOptions are shared by every TTL cache in the process.
type CacheOptions []cache.Option

func ProvideCacheOptions(cfg *config.Config, store *cache.RedisStore, rec *metrics.Recorder) CacheOptions {
	opts := CacheOptions{
		cache.WithMaxSize(cfg.Cache.MaxSize),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
		cache.WithFetchTimeout(cfg.Cache.FetchTimeout),
		cache.WithRecorder(rec),
	}
	if store != nil {
		opts = append(opts, cache.WithStore(store, ""))
	}
	return opts
}

func ProvideQuoteCache(opts CacheOptions) *cache.TTL[string, models.Quote] {
	return cache.NewTTL[string, models.Quote]("quotes", opts...)
}

func ProvideSymbolCache(opts CacheOptions) *cache.TTL[string, *models.TickerCandidate] {
	return cache.NewTTL[string, *models.TickerCandidate]("symbols", opts...)
}

func ProvideValidationCache(opts CacheOptions) *cache.TTL[string, models.MarketValidation] {
	return cache.NewTTL[string, models.MarketValidation]("validations", opts...)
}

func ProvideNewsCache(opts CacheOptions) *cache.TTL[usecase.NewsKey, []models.RawArticle] {
	return usecase.NewNewsCache(opts...)
}

func ProvideFallbackChain(rec *metrics.Recorder, l *applogger.Logger) *fallback.Chain {
	return fallback.NewChain(rec, l.Component("fallback"))
}

func ProvideValidator(
	fh *finnhub.Client,
	c *cache.TTL[string, models.MarketValidation],
	l *applogger.Logger,
	cfg *config.Config,
) service.MarketValidator {
	return resolver.NewValidator(fh, fh, c, cfg.Cache.ValidationTTL, l.Component("validator"))
}

func ProvideResolver(
	fh *finnhub.Client,
	v service.MarketValidator,
	c *cache.TTL[string, *models.TickerCandidate],
	l *applogger.Logger,
	cfg *config.Config,
) service.TickerResolver {
	return resolver.New(fh, v, c, cfg.Cache.SymbolTTL, l.Component("resolver"))
}

// ProvideArticleStore opens the configured store and ensures its schema.
func ProvideArticleStore(cfg *config.Config) (repository.ArticleStore, error) {
	var (
		store repository.ArticleStore
		err   error
	)
	switch cfg.Store.Type {
	case config.StoreSQLite:
		store, err = internalrepo.OpenSQLiteArticleStore(cfg.Store.SQLitePath)
	case config.StoreClickHouse:
		var client *pkgch.Client
		client, err = pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err == nil {
			store = internalrepo.NewClickHouseArticleStore(client, cfg.Store.Table)
		}
	default:
		store = internalrepo.NewMemoryArticleStore()
	}
	if err != nil {
		return nil, fmt.Errorf("%s article store: %w", cfg.Store.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s article store schema: %w", cfg.Store.Type, err)
	}
	return store, nil
}

// ProvideArticlePublisher publishes stored articles to Kafka when a topic is
// configured.
func ProvideArticlePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ArticlePublisher {
	if producer == nil || cfg.Kafka.ArticleTopic == "" {
		return internalrepo.NopArticlePublisher{}
	}
	return internalrepo.NewKafkaArticlePublisher(producer, cfg.Kafka.ArticleTopic)
}

func ProvideRelevanceEngine(store repository.ArticleStore, rec *metrics.Recorder, l *applogger.Logger) service.RelevanceEngine {
	return relevance.NewEngine(store, rec, l.Component("relevance"))
}

func ProvideRanker() service.NewsRanker {
	return scoring.New()
}

// ProvideIntentExtractor connects to Gemini. Without a key onboarding is
// reported as misconfigured at call time rather than failing startup.
func ProvideIntentExtractor(cfg *config.Config) (repository.IntentExtractor, error) {
	if cfg.Intents.GeminiAPIKey == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	x, err := gemini.NewIntentExtractor(ctx, cfg.Intents.GeminiAPIKey, cfg.Intents.Model)
	if err != nil {
		return nil, err
	}
	return x, nil
}

func ProvideQuoteService(
	chain *fallback.Chain,
	providers []repository.QuoteProvider,
	c *cache.TTL[string, models.Quote],
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.QuoteService {
	return usecase.NewQuoteService(chain, providers, c, cfg.Cache.QuoteTTL, cfg.News.BatchWidth, l.Component("quotes"))
}

func ProvideSymbolService(r service.TickerResolver, v service.MarketValidator, l *applogger.Logger, cfg *config.Config) *usecase.SymbolService {
	return usecase.NewSymbolService(r, v, cfg.News.BatchWidth, l.Component("symbols"))
}

func ProvideNewsService(
	chain *fallback.Chain,
	providers []repository.NewsProvider,
	c *cache.TTL[usecase.NewsKey, []models.RawArticle],
	engine service.RelevanceEngine,
	ranker service.NewsRanker,
	store repository.ArticleStore,
	publisher repository.ArticlePublisher,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.NewsService {
	return usecase.NewNewsService(chain, providers, c, engine, ranker, store, publisher, usecase.NewsConfig{
		TopK:          cfg.News.TopK,
		BatchWidth:    cfg.News.BatchWidth,
		Lookback:      cfg.News.Lookback,
		Limit:         cfg.News.Limit,
		CacheTTL:      cfg.Cache.NewsTTL,
		IncludeMarket: cfg.News.IncludeMarket,
	}, l.Component("news"))
}

func ProvidePortfolioService(x repository.IntentExtractor, symbols *usecase.SymbolService, l *applogger.Logger) *usecase.PortfolioService {
	return usecase.NewPortfolioService(x, symbols, l.Component("portfolio"))
}

func ProvideServices(
	symbols *usecase.SymbolService,
	quotes *usecase.QuoteService,
	news *usecase.NewsService,
	portfolio *usecase.PortfolioService,
) server.Services {
	return server.Services{Symbols: symbols, Quotes: quotes, News: news, Portfolio: portfolio}
}

func ProvideHandler(
	l *applogger.Logger,
	svc server.Services,
	usage *fetch.Usage,
	store repository.ArticleStore,
) xhttp.Handler {
	return api.NewPortfolioEchoHandler(l.Component("api"), svc.Symbols, svc.Quotes, svc.News, svc.Portfolio, usage, store)
}

// ProvideApp assembles the application and registers every closable
// resource in start order.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	svc server.Services,
	handler xhttp.Handler,
	apiLimiter middleware.Allower,
	usage *fetch.Usage,
	rec *metrics.Recorder,
	quotes *cache.TTL[string, models.Quote],
	symbols *cache.TTL[string, *models.TickerCandidate],
	validations *cache.TTL[string, models.MarketValidation],
	news *cache.TTL[usecase.NewsKey, []models.RawArticle],
	redisStore *cache.RedisStore,
	store repository.ArticleStore,
	publisher repository.ArticlePublisher,
	producer *pkgkafka.Producer,
) *server.App {
	opts := []server.Option{
		server.WithSweepers(quotes, symbols, validations, news),
		server.WithCloser("caches", func() error {
			quotes.Close()
			symbols.Close()
			validations.Close()
			news.Close()
			return nil
		}),
		server.WithCloser("article store", store.Close),
		server.WithCloser("article publisher", publisher.Close),
	}
	if redisStore != nil {
		opts = append(opts, server.WithCloser("redis", redisStore.Close))
	}
	if producer != nil {
		// runs before the producer closes so the last digests still ship
		opts = append(opts,
			server.WithCloser("kafka producer", producer.Close),
			server.WithCloser("log collector", func() error {
				l.RemoveCollector()
				return nil
			}),
		)
	}
	return server.New(cfg, l, svc, handler, apiLimiter, usage, rec, opts...)
}
