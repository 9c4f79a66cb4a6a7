package config

import "time"

// AnalyzerConfig is the root configuration for the arbitrage analyzer.
type AnalyzerConfig struct {
	Source   SourceConfig   `yaml:"source"`
	Tracking TrackingConfig `yaml:"tracking"`
	Poller   PollerConfig   `yaml:"poller"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Writer   WriterConfig   `yaml:"writer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig holds price source settings.
type SourceConfig struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`     // Per-fetch timeout
	MaxRetries int           `yaml:"max_retries"` // 0 = single request per fetch
}

// TrackingConfig lists what the analyzer tracks.
type TrackingConfig struct {
	Assets        []string `yaml:"assets"`
	Markets       []string `yaml:"markets"`
	InitialMarket string   `yaml:"initial_market"` // Market attributed to empty records
}

// PollerConfig holds polling driver settings.
type PollerConfig struct {
	Interval     time.Duration `yaml:"interval"`      // Pacing delay after each processed quote
	RetryBackoff time.Duration `yaml:"retry_backoff"` // Delay after a failed fetch
	MergeTimeout time.Duration `yaml:"merge_timeout"`
	MaxInFlight  int           `yaml:"max_in_flight"` // Concurrent background merges
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds the optional opportunity journal database.
// The journal is disabled when Postgres.Host is empty.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Postgres.Host != ""
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the optional Redis mirror. Disabled when Addr is empty.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Channel   string        `yaml:"channel"` // Pub/sub channel for opportunities
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// WriterConfig holds opportunity journal batching settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// GeneratorConfig is the root configuration for the mock price source.
type GeneratorConfig struct {
	Server      ServerConfig  `yaml:"server"`
	AssetsFile  string        `yaml:"assets_file"`  // YAML list, relative to the config file
	MarketsFile string        `yaml:"markets_file"` // YAML list, relative to the config file
	Assets      []string      `yaml:"assets"`       // Used when AssetsFile is empty
	Markets     []string      `yaml:"markets"`      // Used when MarketsFile is empty
	PriceConfig PriceConfig   `yaml:"price_config"`
	Update      UpdateConfig  `yaml:"update"`
	Seed        uint64        `yaml:"seed"`
	Logging     LoggingConfig `yaml:"logging"`
}

// PriceConfig bounds generated prices and spreads.
type PriceConfig struct {
	PriceMin       float64 `yaml:"price_min"`
	PriceMax       float64 `yaml:"price_max"`
	SpreadMin      float64 `yaml:"spread_min"`
	SpreadMax      float64 `yaml:"spread_max"`
	PriceChangeMax float64 `yaml:"price_change_max"` // Max relative change per step (0.01 = 1%)
	MarketDiffMax  float64 `yaml:"market_diff_max"`  // Max initial deviation between markets
}

// UpdateConfig bounds the random delay between price steps.
type UpdateConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}
