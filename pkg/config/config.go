package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory     = "memory"
	StoreSQLite     = "sqlite"
	StoreClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level          string        `yaml:"level" default:"info"`
		Format         string        `yaml:"format" default:"console"`
		Output         string        `yaml:"output" default:"stdout"`
		ErrorTopic     string        `yaml:"error_topic"` // Kafka topic for error digests; empty disables
		FlushInterval  time.Duration `yaml:"flush_interval" default:"1m"`
		CountThreshold int           `yaml:"count_threshold" default:"50"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	API struct {
		RateLimit struct {
			Capacity        int     `yaml:"capacity" default:"30"`
			RefillPerSecond float64 `yaml:"refill_per_second" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"api"`
	Providers struct {
		HTTPTimeout time.Duration `yaml:"http_timeout" default:"10s"`
		UserAgent   string        `yaml:"user_agent" default:"FolioFeed/1.0"`
		Finnhub     struct {
			APIKey      string        `yaml:"api_key"`
			BaseURL     string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
			MinInterval time.Duration `yaml:"min_interval" default:"1100ms"`
		} `yaml:"finnhub"`
		Yahoo struct {
			Enabled     bool          `yaml:"enabled" default:"true"`
			BaseURL     string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
			MinInterval time.Duration `yaml:"min_interval" default:"500ms"`
		} `yaml:"yahoo"`
		RSS struct {
			Enabled     bool          `yaml:"enabled" default:"true"`
			BaseURL     string        `yaml:"base_url" default:"https://feeds.finance.yahoo.com/rss/2.0/headline"`
			MinInterval time.Duration `yaml:"min_interval" default:"500ms"`
		} `yaml:"rss"`
	} `yaml:"providers"`
	Fetch struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BaseBackoff  time.Duration `yaml:"base_backoff" default:"1s"`
		MaxBackoff   time.Duration `yaml:"max_backoff" default:"30s"`
		NetworkDelay time.Duration `yaml:"network_delay" default:"2s"`
		UsageWindow  time.Duration `yaml:"usage_window" default:"1m"`
	} `yaml:"fetch"`
	Cache struct {
		QuoteTTL      time.Duration `yaml:"quote_ttl" default:"1m"`
		SymbolTTL     time.Duration `yaml:"symbol_ttl" default:"24h"`
		ValidationTTL time.Duration `yaml:"validation_ttl" default:"1h"`
		NewsTTL       time.Duration `yaml:"news_ttl" default:"15m"`
		SweepInterval time.Duration `yaml:"sweep_interval" default:"1m"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout" default:"2m"`
		MaxSize       int           `yaml:"max_size" default:"10000"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"foliofeed"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	News struct {
		TopK          int           `yaml:"top_k" default:"10"`
		BatchWidth    int           `yaml:"batch_width" default:"5"`
		Lookback      time.Duration `yaml:"lookback" default:"72h"`
		Limit         int           `yaml:"limit" default:"50"`
		IncludeMarket bool          `yaml:"include_market" default:"true"`
	} `yaml:"news"`
	Store struct {
		Type       string        `yaml:"type" default:"memory"`
		SQLitePath string        `yaml:"sqlite_path" default:"data/foliofeed.db"`
		Table      string        `yaml:"table" default:"news_articles"`
		Retention  time.Duration `yaml:"retention" default:"720h"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ArticleTopic string   `yaml:"article_topic"` // empty disables article publishing
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Intents struct {
		GeminiAPIKey string `yaml:"gemini_api_key"`
		Model        string `yaml:"model" default:"gemini-2.5-flash"`
	} `yaml:"intents"`
	Scheduler struct {
		Enabled         bool             `yaml:"enabled"`
		RefreshCron     string           `yaml:"refresh_cron" default:"*/15 * * * *"`
		MaintenanceCron string           `yaml:"maintenance_cron" default:"0 * * * *"`
		Watchlist       []WatchedHolding `yaml:"watchlist"`
	} `yaml:"scheduler"`
}

// WatchedHolding is a holding refreshed on the scheduler.
type WatchedHolding struct {
	Symbol      string  `yaml:"symbol"`
	Shares      float64 `yaml:"shares"`
	CompanyName string  `yaml:"company_name"`
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with environment overrides applied before validation.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Intents.GeminiAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid. A missing Finnhub key is
// allowed: calls fail as misconfigured and fallback providers still serve.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Store.Type {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite store")
		}
	case StoreClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse store")
		}
	default:
		return fmt.Errorf("store.type must be 'memory', 'sqlite' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if c.News.BatchWidth <= 0 {
		return fmt.Errorf("news.batch_width must be positive")
	}
	if c.News.TopK <= 0 {
		return fmt.Errorf("news.top_k must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be positive")
	}
	if c.Log.ErrorTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("log.error_topic requires kafka.brokers")
	}
	if c.Kafka.ArticleTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.article_topic requires kafka.brokers")
	}
	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.RefreshCron); err != nil {
			return fmt.Errorf("scheduler.refresh_cron: %w", err)
		}
		if _, err := cron.ParseStandard(c.Scheduler.MaintenanceCron); err != nil {
			return fmt.Errorf("scheduler.maintenance_cron: %w", err)
		}
	}
	return nil
}
