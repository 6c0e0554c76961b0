package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Server.Port != 8080 || c.Store.Type != StoreMemory || c.News.BatchWidth != 5 {
		t.Fatalf("unexpected defaults: port=%d store=%s width=%d", c.Server.Port, c.Store.Type, c.News.BatchWidth)
	}
	if c.Fetch.MaxAttempts != 3 || c.Fetch.BaseBackoff != time.Second || c.News.Lookback != 72*time.Hour {
		t.Fatalf("unexpected fetch/news defaults: %+v %+v", c.Fetch, c.News)
	}
	if c.Providers.Finnhub.MinInterval != 1100*time.Millisecond || !c.Providers.Yahoo.Enabled {
		t.Fatalf("unexpected provider defaults: %+v", c.Providers)
	}
	if c.Kafka.RequiredAcks != -1 {
		t.Fatalf("expected acks=-1, got %d", c.Kafka.RequiredAcks)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
providers:
  yahoo:
    enabled: false
news:
  top_k: 3
store:
  type: sqlite
  sqlite_path: /tmp/x.db
scheduler:
  enabled: true
  watchlist:
    - symbol: AAPL
      shares: 10
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Environment != "production" || c.Providers.Yahoo.Enabled || c.News.TopK != 3 {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.News.BatchWidth != 5 {
		t.Fatalf("unset values keep defaults, got width %d", c.News.BatchWidth)
	}
	if len(c.Scheduler.Watchlist) != 1 || c.Scheduler.Watchlist[0].Shares != 10 {
		t.Fatalf("unexpected watchlist %+v", c.Scheduler.Watchlist)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORE_TYPE", "sqlite")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Providers.Finnhub.APIKey != "fh-key" || c.Intents.GeminiAPIKey != "gm-key" {
		t.Fatal("api keys not applied")
	}
	if !c.Cache.Redis.Enabled || c.Cache.Redis.Addr != "redis:6379" {
		t.Fatalf("redis override not applied: %+v", c.Cache.Redis)
	}
	if len(c.Kafka.Brokers) != 2 || c.Store.Type != StoreSQLite {
		t.Fatalf("kafka/store overrides not applied: %v %s", c.Kafka.Brokers, c.Store.Type)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown store":        "store:\n  type: postgres\n",
		"clickhouse no host":   "store:\n  type: clickhouse\n",
		"zero width":           "news:\n  batch_width: 0\n",
		"topic without broker": "log:\n  error_topic: logs\n",
		"bad cron":             "scheduler:\n  enabled: true\n  refresh_cron: every minute\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected a read error")
	}
}
