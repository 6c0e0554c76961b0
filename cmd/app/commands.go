package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"FolioFeed/internal/di"
	"FolioFeed/internal/domain/models"
	"FolioFeed/pkg/config"
	xhttp "FolioFeed/pkg/http"
	"FolioFeed/pkg/server"
)

var (
	flagConfig   string
	flagTimeout  time.Duration
	flagHoldings []string
	flagLimit    int
)

var rootCmd = &cobra.Command{
	Use:          "foliofeed",
	Short:        "Portfolio quotes, symbol resolution and ranked news",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the refresh scheduler",
	RunE:  runServe,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve QUERY...",
	Short: "Resolve company names or tickers to symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) (interface{}, error) {
			return app.Symbols.ResolveSymbols(ctx, args), nil
		})
	},
}

var quotesCmd = &cobra.Command{
	Use:   "quotes SYMBOL...",
	Short: "Fetch current quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbols := xhttp.ParseSymbols(strings.Join(args, ","))
		return withApp(func(ctx context.Context, app *server.App) (interface{}, error) {
			return app.Quotes.GetQuotes(ctx, symbols), nil
		})
	},
}

var newsCmd = &cobra.Command{
	Use:     "news",
	Short:   "Rank recent news for a portfolio",
	Example: "  foliofeed news --holding TSLA=100 --holding AAPL=10",
	RunE: func(cmd *cobra.Command, args []string) error {
		holdings, err := parseHoldings(flagHoldings)
		if err != nil {
			return err
		}
		req := &models.RankedNewsRequest{Holdings: holdings, Limit: flagLimit}
		if verr := xhttp.ValidateStruct(req); verr != nil {
			return fmt.Errorf("invalid holdings: %v", verr)
		}
		return withApp(func(ctx context.Context, app *server.App) (interface{}, error) {
			return app.News.GetRankedNewsForHoldings(ctx, req.Holdings, req.Limit)
		})
	},
}

var onboardCmd = &cobra.Command{
	Use:   "onboard TEXT",
	Short: "Build a portfolio from a free-text description of holdings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return withApp(func(ctx context.Context, app *server.App) (interface{}, error) {
			return app.Portfolio.Onboard(ctx, text)
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored articles older than the configured retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) (interface{}, error) {
			n, err := app.News.Prune(ctx, app.Retention())
			return map[string]int64{"pruned": n}, err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "deadline for one-shot commands")

	newsCmd.Flags().StringArrayVar(&flagHoldings, "holding", nil, "holding as SYMBOL=SHARES (repeatable)")
	newsCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of articles")
	_ = newsCmd.MarkFlagRequired("holding")

	rootCmd.AddCommand(serveCmd, resolveCmd, quotesCmd, newsCmd, onboardCmd, pruneCmd)
}

// buildApp loads config and wires the app. One-shot commands log to stderr
// so stdout carries only the result.
func buildApp(oneShot bool) (*server.App, error) {
	cfg, err := config.LoadWithEnv(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if oneShot {
		cfg.Log.Output = "stderr"
		cfg.Scheduler.Enabled = false
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := buildApp(false)
	if err != nil {
		return err
	}
	return app.Run()
}

// withApp runs one command against a fully wired app and prints the result
// as JSON.
func withApp(fn func(ctx context.Context, app *server.App) (interface{}, error)) error {
	app, err := buildApp(true)
	if err != nil {
		return err
	}
	defer func() { _ = app.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	out, err := fn(ctx, app)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseHoldings reads SYMBOL=SHARES pairs. A bare SYMBOL counts as one share.
func parseHoldings(raw []string) ([]models.Holding, error) {
	out := make([]models.Holding, 0, len(raw))
	for _, r := range raw {
		sym, shares, found := strings.Cut(r, "=")
		h := models.Holding{Symbol: strings.ToUpper(strings.TrimSpace(sym)), Shares: 1}
		if found {
			n, err := strconv.ParseFloat(strings.TrimSpace(shares), 64)
			if err != nil {
				return nil, fmt.Errorf("holding %q: shares: %w", r, err)
			}
			h.Shares = n
		}
		if h.Symbol == "" {
			return nil, fmt.Errorf("holding %q: missing symbol", r)
		}
		out = append(out, h)
	}
	return out, nil
}
