package cache

import "time"

// Option configures a TTL cache.
type Option func(*Config)

// Config holds TTL cache configuration.
type Config struct {
	MaxSize       int
	SweepInterval time.Duration
	FetchTimeout  time.Duration
	Store         Store
	StorePrefix   string
	Recorder      Recorder
	Clock         func() time.Time
}

// WithMaxSize bounds the number of entries; the oldest entry is evicted when full.
func WithMaxSize(size int) Option {
	return func(c *Config) {
		c.MaxSize = size
	}
}

// WithSweepInterval sets how often expired entries are evicted. Zero disables
// the background sweep; Sweep can still be called directly.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.SweepInterval = interval
	}
}

// WithFetchTimeout bounds a shared fetch, which otherwise outlives every caller.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = timeout
	}
}

// WithStore adds a second tier consulted before fetching.
func WithStore(store Store, prefix string) Option {
	return func(c *Config) {
		c.Store = store
		c.StorePrefix = prefix
	}
}

// WithRecorder sets the lookup recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}

// RedisOption configures the Redis store.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// WithRedisAddr sets the host:port address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = addr
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}
