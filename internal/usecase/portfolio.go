package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	applogger "FolioFeed/pkg/logger"
)

// PortfolioService builds a portfolio from a free-text description such as
// "10 shares of apple and 5 of microsoft".
type PortfolioService struct {
	intents repository.IntentExtractor
	symbols *SymbolService
	logger  *applogger.Logger
}

// NewPortfolioService accepts a nil extractor; Onboard then fails with
// ErrMisconfigured.
func NewPortfolioService(intents repository.IntentExtractor, symbols *SymbolService, l *applogger.Logger) *PortfolioService {
	return &PortfolioService{intents: intents, symbols: symbols, logger: l}
}

func (s *PortfolioService) Onboard(ctx context.Context, text string) (*models.Portfolio, error) {
	if s.intents == nil {
		return nil, fmt.Errorf("onboard: intent extraction: %w", models.ErrMisconfigured)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &models.Portfolio{}, nil
	}

	intents, err := s.intents.ExtractIntents(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("onboard: extract intents: %w", err)
	}

	queries := make([]string, len(intents))
	for i, in := range intents {
		queries[i] = in.Intent
	}
	resolutions := s.symbols.ResolveSymbols(ctx, queries)

	p := &models.Portfolio{}
	index := map[string]int{}
	for i, r := range resolutions {
		if r.Candidate == nil {
			p.Unresolved = append(p.Unresolved, intents[i].Intent)
			continue
		}
		shares := math.Max(0, intents[i].Shares)
		if j, ok := index[r.Candidate.Symbol]; ok {
			h := &p.Holdings[j]
			h.Shares += shares
			h.Confidence = math.Max(h.Confidence, r.Candidate.Confidence)
			continue
		}
		index[r.Candidate.Symbol] = len(p.Holdings)
		p.Holdings = append(p.Holdings, models.PortfolioHolding{
			Holding: models.Holding{
				Symbol:      r.Candidate.Symbol,
				Shares:      shares,
				CompanyName: r.Candidate.CompanyName,
			},
			Confidence: r.Candidate.Confidence,
		})
	}
	for i := range p.Holdings {
		p.Holdings[i].Weight = models.ShareWeight(p.Holdings[i].Shares)
	}

	s.logger.Info("portfolio onboarded",
		applogger.Int("intents", len(intents)),
		applogger.Int("holdings", len(p.Holdings)),
		applogger.Int("unresolved", len(p.Unresolved)),
	)
	return p, nil
}
