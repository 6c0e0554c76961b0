package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/internal/domain/service"
	"FolioFeed/internal/service/fallback"
	"FolioFeed/pkg/cache"
	applogger "FolioFeed/pkg/logger"
)

const (
	capabilityCompanyNews = "company_news"
	capabilityMarketNews  = "market_news"

	// rows read from the store before ranking; ranking reorders by more than
	// recency so the list is wider than the response
	storeScanLimit = 500
)

type NewsConfig struct {
	TopK          int           // symbols fetched per refresh, by weight
	BatchWidth    int           // concurrent provider fetches
	Lookback      time.Duration // publication window
	Limit         int           // default response size
	CacheTTL      time.Duration // raw provider responses
	IncludeMarket bool          // also ingest market-wide headlines
}

func (c NewsConfig) withDefaults() NewsConfig {
	if c.TopK <= 0 {
		c.TopK = 10
	}
	if c.BatchWidth <= 0 {
		c.BatchWidth = defaultBatchWidth
	}
	if c.Lookback <= 0 {
		c.Lookback = 72 * time.Hour
	}
	if c.Limit <= 0 {
		c.Limit = 50
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	return c
}

// NewsKey identifies one raw provider response. Windows are keyed by day so
// repeated refreshes within a day share entries.
type NewsKey struct {
	Scope  string
	Symbol string
	Days   string
}

func (k NewsKey) String() string {
	return k.Scope + ":" + k.Symbol + ":" + k.Days
}

// NewsService ingests provider news for a portfolio and serves it ranked.
type NewsService struct {
	chain     *fallback.Chain
	providers []repository.NewsProvider
	cache     *cache.TTL[NewsKey, []models.RawArticle]
	engine    service.RelevanceEngine
	ranker    service.NewsRanker
	store     repository.ArticleStore
	publisher repository.ArticlePublisher
	cfg       NewsConfig
	now       func() time.Time
	logger    *applogger.Logger
}

func NewNewsService(
	chain *fallback.Chain,
	providers []repository.NewsProvider,
	c *cache.TTL[NewsKey, []models.RawArticle],
	engine service.RelevanceEngine,
	ranker service.NewsRanker,
	store repository.ArticleStore,
	publisher repository.ArticlePublisher,
	cfg NewsConfig,
	l *applogger.Logger,
	opts ...NewsOption,
) *NewsService {
	s := &NewsService{
		chain:     chain,
		providers: providers,
		cache:     c,
		engine:    engine,
		ranker:    ranker,
		store:     store,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		logger:    l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type NewsOption func(*NewsService)

// WithNewsClock replaces the clock used for lookback windows.
func WithNewsClock(now func() time.Time) NewsOption {
	return func(s *NewsService) {
		s.now = now
	}
}

// NewNewsCache builds the raw-response cache NewsService expects.
func NewNewsCache(opts ...cache.Option) *cache.TTL[NewsKey, []models.RawArticle] {
	return cache.NewTTL[NewsKey, []models.RawArticle]("news", opts...)
}

// GetRankedNews refreshes news for the portfolio, then ranks stored articles
// for it. Ingestion failures are tolerated as long as there is something to
// serve.
func (s *NewsService) GetRankedNews(ctx context.Context, weights models.PortfolioWeights) ([]models.RankedNewsItem, error) {
	return s.rank(ctx, weights, nil, s.cfg.Limit)
}

// GetRankedNewsForHoldings is GetRankedNews for explicit holdings. Company
// names on the holdings help match articles that never print the ticker.
func (s *NewsService) GetRankedNewsForHoldings(ctx context.Context, holdings []models.Holding, limit int) ([]models.RankedNewsItem, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	return s.rank(ctx, models.WeightsFromHoldings(holdings), holdingNames(holdings), limit)
}

// Refresh ingests news for the portfolio without ranking. It returns the
// number of newly stored articles.
func (s *NewsService) Refresh(ctx context.Context, weights models.PortfolioWeights) (int, error) {
	return s.refresh(ctx, weights, nil)
}

// RefreshHoldings is Refresh for explicit holdings.
func (s *NewsService) RefreshHoldings(ctx context.Context, holdings []models.Holding) (int, error) {
	return s.refresh(ctx, models.WeightsFromHoldings(holdings), holdingNames(holdings))
}

// Prune drops stored articles published before now-retention.
func (s *NewsService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.Prune(ctx, s.now().Add(-retention))
}

func (s *NewsService) rank(ctx context.Context, weights models.PortfolioWeights, names map[string]string, limit int) ([]models.RankedNewsItem, error) {
	if len(weights) == 0 {
		return nil, nil
	}

	_, refreshErr := s.refresh(ctx, weights, names)
	if refreshErr != nil {
		s.logger.Warn("news refresh incomplete, serving stored articles",
			applogger.Strings("symbols", weights.Symbols()),
			applogger.Error(refreshErr),
		)
	}

	window := repository.LookbackWindow(s.now(), s.cfg.Lookback)
	articles, err := s.store.ListBySymbols(ctx, weights.Symbols(), window.From, storeScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if len(articles) == 0 && refreshErr != nil {
		return nil, refreshErr
	}

	ranked := s.ranker.Rank(articles, weights)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// refresh fetches company news for the top-weighted symbols, plus market news
// when enabled, and ingests everything against all held symbols. It fails
// only if every fetch failed or ingestion itself failed.
func (s *NewsService) refresh(ctx context.Context, weights models.PortfolioWeights, names map[string]string) (int, error) {
	tracked := weights.Symbols()
	if len(tracked) == 0 {
		return 0, nil
	}
	fetchFor := tracked
	if len(fetchFor) > s.cfg.TopK {
		fetchFor = fetchFor[:s.cfg.TopK]
	}
	window := repository.LookbackWindow(s.now(), s.cfg.Lookback)

	var (
		mu       sync.Mutex
		raws     []models.RawArticle
		failures []error
	)
	collect := func(items []models.RawArticle, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures = append(failures, err)
			return
		}
		raws = append(raws, items...)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchWidth)
	tasks := len(fetchFor)
	if s.cfg.IncludeMarket {
		tasks++
		g.Go(func() error {
			collect(s.marketNews(ctx, window))
			return nil
		})
	}
	for _, sym := range fetchFor {
		g.Go(func() error {
			collect(s.companyNews(ctx, sym, window))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(failures) == tasks {
		return 0, fmt.Errorf("fetch news: %w", errors.Join(failures...))
	}
	if len(failures) > 0 {
		s.logger.Warn("some news fetches failed",
			applogger.Int("failed", len(failures)),
			applogger.Int("total", tasks),
			applogger.Error(errors.Join(failures...)),
		)
	}

	fresh, err := s.engine.Ingest(ctx, raws, tracked, names)
	if err != nil {
		return 0, fmt.Errorf("ingest news: %w", err)
	}
	if len(fresh) > 0 && s.publisher != nil {
		if err := s.publisher.PublishArticles(ctx, fresh); err != nil {
			s.logger.Error("publish articles failed",
				applogger.Int("count", len(fresh)),
				applogger.Error(err),
			)
		}
	}
	return len(fresh), nil
}

func (s *NewsService) companyNews(ctx context.Context, symbol string, window repository.Window) ([]models.RawArticle, error) {
	key := NewsKey{Scope: "company", Symbol: symbol, Days: window.DayKey()}
	return s.cache.GetOrFetch(ctx, key, s.cfg.CacheTTL, func(ctx context.Context) ([]models.RawArticle, error) {
		providers := make([]fallback.Provider[[]models.RawArticle], len(s.providers))
		for i, p := range s.providers {
			providers[i] = fallback.Provider[[]models.RawArticle]{
				Name: p.Name(),
				Fetch: func(ctx context.Context) ([]models.RawArticle, error) {
					return p.CompanyNews(ctx, symbol, window)
				},
			}
		}
		return fallback.Resolve(ctx, s.chain, capabilityCompanyNews, providers)
	})
}

func (s *NewsService) marketNews(ctx context.Context, window repository.Window) ([]models.RawArticle, error) {
	key := NewsKey{Scope: "market", Days: window.DayKey()}
	return s.cache.GetOrFetch(ctx, key, s.cfg.CacheTTL, func(ctx context.Context) ([]models.RawArticle, error) {
		providers := make([]fallback.Provider[[]models.RawArticle], len(s.providers))
		for i, p := range s.providers {
			providers[i] = fallback.Provider[[]models.RawArticle]{
				Name: p.Name(),
				Fetch: func(ctx context.Context) ([]models.RawArticle, error) {
					return p.MarketNews(ctx, window)
				},
			}
		}
		return fallback.Resolve(ctx, s.chain, capabilityMarketNews, providers)
	})
}

func holdingNames(holdings []models.Holding) map[string]string {
	names := make(map[string]string, len(holdings))
	for _, h := range holdings {
		if h.CompanyName != "" {
			names[cache.NormalizeSymbol(h.Symbol)] = h.CompanyName
		}
	}
	return names
}
