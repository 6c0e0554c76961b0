package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/service"
	"FolioFeed/internal/services/resolver"
	applogger "FolioFeed/pkg/logger"
)

// SymbolService resolves free-text company references in batches.
type SymbolService struct {
	resolver  service.TickerResolver
	validator service.MarketValidator
	width     int
	logger    *applogger.Logger
}

func NewSymbolService(r service.TickerResolver, v service.MarketValidator, width int, l *applogger.Logger) *SymbolService {
	if width <= 0 {
		width = defaultBatchWidth
	}
	return &SymbolService{resolver: r, validator: v, width: width, logger: l}
}

// ResolveSymbols returns one Resolution per query, in input order.
func (s *SymbolService) ResolveSymbols(ctx context.Context, queries []string) []models.Resolution {
	out := make([]models.Resolution, len(queries))

	var g errgroup.Group
	g.SetLimit(s.width)
	for i, q := range queries {
		g.Go(func() error {
			out[i] = s.resolveOne(ctx, q)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// resolveOne combines the text match with market evidence. A candidate whose
// combined confidence falls under the threshold is reported without one.
func (s *SymbolService) resolveOne(ctx context.Context, query string) models.Resolution {
	res := models.Resolution{Query: query}

	cand, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		s.logger.Warn("symbol resolution failed",
			applogger.String("query", query),
			applogger.Error(err),
		)
		res.Error = errorMessage(err)
		return res
	}
	if cand == nil {
		return res
	}

	v := s.validator.Validate(ctx, cand.Symbol)
	res.Validation = &v

	c := *cand
	c.Confidence = resolver.CombineConfidence(cand.Confidence, v)
	if v.CompanyName != "" {
		c.CompanyName = v.CompanyName
	}
	if c.Confidence < resolver.MinConfidence {
		s.logger.Debug("candidate rejected by market validation",
			applogger.String("query", query),
			applogger.String("symbol", c.Symbol),
			applogger.Float64("confidence", c.Confidence),
		)
		return res
	}
	res.Candidate = &c
	return res
}
