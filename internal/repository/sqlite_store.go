package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
)

// SQLiteArticleStore persists articles in a local SQLite file. Writes go
// through a single connection; reads use a separate read-only pool.
type SQLiteArticleStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

var _ repository.ArticleStore = (*SQLiteArticleStore)(nil)

func OpenSQLiteArticleStore(path string) (*SQLiteArticleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	return &SQLiteArticleStore{readDB: readDB, writeDB: writeDB}, nil
}

func (s *SQLiteArticleStore) Init(ctx context.Context) error {
	_, err := s.writeDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS articles (
			external_id  TEXT PRIMARY KEY,
			headline     TEXT NOT NULL,
			summary      TEXT NOT NULL DEFAULT '',
			url          TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL DEFAULT '',
			published_at INTEGER NOT NULL,
			category     TEXT NOT NULL,
			impact       TEXT NOT NULL,
			ingested_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
		CREATE INDEX IF NOT EXISTS idx_articles_headline ON articles(headline);
		CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);

		CREATE TABLE IF NOT EXISTS article_symbols (
			external_id  TEXT NOT NULL,
			position     INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			relevance    REAL NOT NULL,
			mention_type TEXT NOT NULL,
			PRIMARY KEY (external_id, symbol)
		);
		CREATE INDEX IF NOT EXISTS idx_article_symbols_symbol ON article_symbols(symbol);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteArticleStore) FindDuplicate(ctx context.Context, externalID, url, headline string) (string, bool, error) {
	checks := []struct {
		kind, column, value string
	}{
		{repository.MatchExternalID, "external_id", externalID},
		{repository.MatchURL, "url", url},
		{repository.MatchHeadline, "headline", headline},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		var one int
		err := s.readDB.QueryRowContext(ctx,
			"SELECT 1 FROM articles WHERE "+c.column+" = ? LIMIT 1", c.value).Scan(&one) //nolint:gosec
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			return "", false, fmt.Errorf("checking %s: %w", c.kind, err)
		}
		return c.kind, true, nil
	}
	return "", false, nil
}

func (s *SQLiteArticleStore) Append(ctx context.Context, articles []models.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	art, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (external_id, headline, summary, url, source, published_at, category, impact, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer art.Close()

	sym, err := tx.PrepareContext(ctx, `
		INSERT INTO article_symbols (external_id, position, symbol, relevance, mention_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_id, symbol) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer sym.Close()

	for _, a := range articles {
		_, err := art.ExecContext(ctx, a.ExternalID, a.Headline, a.Summary, a.URL, a.Source,
			a.PublishedAt.UnixMilli(), string(a.Category), string(a.Impact), a.IngestedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("inserting article %s: %w", a.ExternalID, err)
		}
		for i, m := range a.RelatedSymbols {
			if _, err := sym.ExecContext(ctx, a.ExternalID, i, m.Symbol, m.RelevanceScore, string(m.MentionType)); err != nil {
				return fmt.Errorf("inserting mention %s/%s: %w", a.ExternalID, m.Symbol, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteArticleStore) ListBySymbols(ctx context.Context, symbols []string, since time.Time, limit int) ([]models.NewsArticle, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 500
	}

	placeholders := make([]string, len(symbols))
	args := make([]interface{}, 0, len(symbols)+2)
	for i, sym := range symbols {
		placeholders[i] = "?"
		args = append(args, sym)
	}
	args = append(args, since.UnixMilli(), limit)

	query := `
		SELECT external_id, headline, summary, url, source, published_at, category, impact, ingested_at
		FROM articles
		WHERE external_id IN (SELECT external_id FROM article_symbols WHERE symbol IN (` + strings.Join(placeholders, ",") + `))
		  AND published_at >= ?
		ORDER BY published_at DESC
		LIMIT ?` //nolint:gosec

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var (
		out   []models.NewsArticle
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			a                   models.NewsArticle
			published, ingested int64
			category, impact    string
		)
		if err := rows.Scan(&a.ExternalID, &a.Headline, &a.Summary, &a.URL, &a.Source,
			&published, &category, &impact, &ingested); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.PublishedAt = time.UnixMilli(published).UTC()
		a.IngestedAt = time.UnixMilli(ingested).UTC()
		a.Category = models.Category(category)
		a.Impact = models.Impact(impact)
		index[a.ExternalID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	if err := s.loadMentions(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteArticleStore) loadMentions(ctx context.Context, articles []models.NewsArticle, index map[string]int) error {
	placeholders := make([]string, len(articles))
	args := make([]interface{}, len(articles))
	for i, a := range articles {
		placeholders[i] = "?"
		args[i] = a.ExternalID
	}
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT external_id, symbol, relevance, mention_type
		FROM article_symbols
		WHERE external_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY external_id, position`, args...) //nolint:gosec
	if err != nil {
		return fmt.Errorf("querying mentions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, mentionType string
			m               models.SymbolMention
		)
		if err := rows.Scan(&id, &m.Symbol, &m.RelevanceScore, &mentionType); err != nil {
			return fmt.Errorf("scanning mention: %w", err)
		}
		m.MentionType = models.MentionType(mentionType)
		if i, ok := index[id]; ok {
			articles[i].RelatedSymbols = append(articles[i].RelatedSymbols, m)
		}
	}
	return rows.Err()
}

func (s *SQLiteArticleStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ms := cutoff.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM article_symbols
		WHERE external_id IN (SELECT external_id FROM articles WHERE published_at < ?)`, ms); err != nil {
		return 0, fmt.Errorf("pruning mentions: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE published_at < ?", ms)
	if err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *SQLiteArticleStore) Health(ctx context.Context) error {
	return s.readDB.PingContext(ctx)
}

func (s *SQLiteArticleStore) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}
