package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/service/fallback"
	"FolioFeed/internal/service/metrics"
	xhttp "FolioFeed/pkg/http"
	xlogger "FolioFeed/pkg/logger"
)

const maxQuoteSymbols = 50

type SymbolResolver interface {
	ResolveSymbols(ctx context.Context, queries []string) []models.Resolution
}

type QuoteLister interface {
	GetQuotes(ctx context.Context, symbols []string) []models.QuoteResult
}

type NewsRanker interface {
	GetRankedNewsForHoldings(ctx context.Context, holdings []models.Holding, limit int) ([]models.RankedNewsItem, error)
}

type Onboarder interface {
	Onboard(ctx context.Context, text string) (*models.Portfolio, error)
}

type UsageReporter interface {
	All() []models.UsageWindow
}

// HealthChecker reports whether the article store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PortfolioEchoHandler serves the portfolio data API.
type PortfolioEchoHandler struct {
	logger    *xlogger.Logger
	symbols   SymbolResolver
	quotes    QuoteLister
	news      NewsRanker
	portfolio Onboarder
	usage     UsageReporter
	health    HealthChecker
}

func NewPortfolioEchoHandler(
	logger *xlogger.Logger,
	symbols SymbolResolver,
	quotes QuoteLister,
	news NewsRanker,
	portfolio Onboarder,
	usage UsageReporter,
	health HealthChecker,
) *PortfolioEchoHandler {
	metrics.Register()
	return &PortfolioEchoHandler{
		logger:    logger,
		symbols:   symbols,
		quotes:    quotes,
		news:      news,
		portfolio: portfolio,
		usage:     usage,
		health:    health,
	}
}

func (h *PortfolioEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/symbols/resolve", h.ResolveSymbols)
	g.GET("/quotes", h.Quotes)
	g.POST("/news/ranked", h.RankedNews)
	g.POST("/portfolio/onboard", h.Onboard)
	g.GET("/usage", h.Usage)
}

func (h *PortfolioEchoHandler) ResolveSymbols(c echo.Context) error {
	const endpoint = "symbols_resolve"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.ResolveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	rows := h.symbols.ResolveSymbols(c.Request().Context(), req.Queries)
	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}
	metrics.APIPartialItems.WithLabelValues(endpoint).Add(float64(failed))
	return xhttp.PartialResponse(c, rows, len(rows), failed)
}

func (h *PortfolioEchoHandler) Quotes(c echo.Context) error {
	const endpoint = "quotes"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := xhttp.ParseSymbols(req.Symbols)
	if len(symbols) == 0 || len(symbols) > maxQuoteSymbols {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("symbols must list between 1 and %d tickers", maxQuoteSymbols).
			WithParam("max", maxQuoteSymbols))
	}

	rows := h.quotes.GetQuotes(c.Request().Context(), symbols)
	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}
	metrics.APIPartialItems.WithLabelValues(endpoint).Add(float64(failed))
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.PartialResponse(c, rows, len(rows), failed)
}

func (h *PortfolioEchoHandler) RankedNews(c echo.Context) error {
	const endpoint = "news_ranked"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.RankedNewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	items, err := h.news.GetRankedNewsForHoldings(c.Request().Context(), req.Holdings, req.Limit)
	if err != nil {
		return h.fail(c, endpoint, "ranked news failed", err)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *PortfolioEchoHandler) Onboard(c echo.Context) error {
	const endpoint = "portfolio_onboard"
	defer metrics.ObserveSince(endpoint, time.Now())

	req := &models.OnboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.portfolio.Onboard(c.Request().Context(), req.Text)
	if err != nil {
		return h.fail(c, endpoint, "onboarding failed", err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *PortfolioEchoHandler) Usage(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.usage.All())
}

func (h *PortfolioEchoHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", xlogger.Error(err))
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"store": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *PortfolioEchoHandler) fail(c echo.Context, endpoint, msg string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	h.logger.Error(msg,
		xlogger.String("endpoint", endpoint),
		xlogger.Int("status", appErr.Status),
		xlogger.Error(err),
	)
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps the domain error taxonomy onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrMisconfigured):
		return xhttp.ServiceUnavailableError("a required provider is not configured").WithError(err)
	case errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("upstream timed out").WithError(err)
	}
	if fe, ok := fallback.AsError(err); ok {
		providers := make(map[string]interface{}, len(fe.Failures))
		for _, f := range fe.Failures {
			providers[f.Provider] = f.Err.Error()
		}
		return xhttp.BadGatewayError(fe.Headline()).
			WithParam("capability", fe.Capability).
			WithParam("providers", providers).
			WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
