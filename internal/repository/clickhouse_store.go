package repository

import (
	"context"
	"fmt"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/pkg/clickhouse"
)

// ClickHouseArticleStore keeps articles in one wide table with the mentions
// stored as parallel arrays.
type ClickHouseArticleStore struct {
	client *clickhouse.Client
	table  string
}

var _ repository.ArticleStore = (*ClickHouseArticleStore)(nil)

func NewClickHouseArticleStore(client *clickhouse.Client, table string) *ClickHouseArticleStore {
	if table == "" {
		table = "news_articles"
	}
	return &ClickHouseArticleStore{client: client, table: table}
}

func (s *ClickHouseArticleStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			external_id   String,
			headline      String,
			summary       String,
			url           String,
			source        LowCardinality(String),
			published_at  DateTime64(3, 'UTC'),
			category      LowCardinality(String),
			impact        LowCardinality(String),
			symbols       Array(String),
			relevance     Array(Float64),
			mention_types Array(String),
			ingested_at   DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(ingested_at)
		ORDER BY external_id`, s.table)})
}

func (s *ClickHouseArticleStore) FindDuplicate(ctx context.Context, externalID, url, headline string) (string, bool, error) {
	checks := []struct{ kind, column, value string }{
		{repository.MatchExternalID, "external_id", externalID},
		{repository.MatchURL, "url", url},
		{repository.MatchHeadline, "headline", headline},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		var n uint64
		q := fmt.Sprintf("SELECT count() FROM %s WHERE %s = ?", s.table, c.column)
		if err := s.client.DB().QueryRowContext(ctx, q, c.value).Scan(&n); err != nil {
			return "", false, fmt.Errorf("checking %s: %w", c.kind, err)
		}
		if n > 0 {
			return c.kind, true, nil
		}
	}
	return "", false, nil
}

func (s *ClickHouseArticleStore) Append(ctx context.Context, articles []models.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(external_id, headline, summary, url, source, published_at, category, impact, symbols, relevance, mention_types, ingested_at)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		symbols := make([]string, len(a.RelatedSymbols))
		relevance := make([]float64, len(a.RelatedSymbols))
		types := make([]string, len(a.RelatedSymbols))
		for i, m := range a.RelatedSymbols {
			symbols[i], relevance[i], types[i] = m.Symbol, m.RelevanceScore, string(m.MentionType)
		}
		if _, err := stmt.ExecContext(ctx,
			a.ExternalID, a.Headline, a.Summary, a.URL, a.Source, a.PublishedAt,
			string(a.Category), string(a.Impact), symbols, relevance, types, a.IngestedAt,
		); err != nil {
			return fmt.Errorf("inserting article %s: %w", a.ExternalID, err)
		}
	}
	return tx.Commit()
}

func (s *ClickHouseArticleStore) ListBySymbols(ctx context.Context, symbols []string, since time.Time, limit int) ([]models.NewsArticle, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 500
	}
	q := fmt.Sprintf(`SELECT external_id, headline, summary, url, source, published_at, category, impact,
			symbols, relevance, mention_types, ingested_at
		FROM %s FINAL
		WHERE hasAny(symbols, ?) AND published_at >= ?
		ORDER BY published_at DESC
		LIMIT ?`, s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, symbols, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var out []models.NewsArticle
	for rows.Next() {
		var (
			a                models.NewsArticle
			category, impact string
			syms, types      []string
			relevance        []float64
		)
		if err := rows.Scan(&a.ExternalID, &a.Headline, &a.Summary, &a.URL, &a.Source, &a.PublishedAt,
			&category, &impact, &syms, &relevance, &types, &a.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.Category = models.Category(category)
		a.Impact = models.Impact(impact)
		for i := range syms {
			m := models.SymbolMention{Symbol: syms[i]}
			if i < len(relevance) {
				m.RelevanceScore = relevance[i]
			}
			if i < len(types) {
				m.MentionType = models.MentionType(types[i])
			}
			a.RelatedSymbols = append(a.RelatedSymbols, m)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune issues a delete mutation. The returned count is taken just before
// the mutation and is approximate under concurrent inserts.
func (s *ClickHouseArticleStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n uint64
	if err := s.client.DB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT count() FROM %s WHERE published_at < ?", s.table), cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting expired articles: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := s.client.DB().ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s DELETE WHERE published_at < ?", s.table), cutoff); err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	return int64(n), nil
}

func (s *ClickHouseArticleStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseArticleStore) Close() error {
	return s.client.Close()
}
