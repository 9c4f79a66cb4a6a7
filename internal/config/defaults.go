package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSourceURL      = "http://localhost:8000"
	DefaultSourceTimeout  = 10 * time.Second
	DefaultPollInterval   = 1 * time.Second
	DefaultRetryBackoff   = 100 * time.Millisecond
	DefaultMergeTimeout   = 2 * time.Second
	DefaultMaxInFlight    = 200
	DefaultServerPort     = 8080
	DefaultGeneratorPort  = 8000
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 10
	DefaultMinConns       = 2
	DefaultRedisKeyPrefix = "arbwatch:"
	DefaultRedisTTL       = 10 * time.Minute
	DefaultRedisChannel   = "arbwatch:opportunities"
	DefaultBatchSize      = 100
	DefaultFlushInterval  = 1 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultPriceChangeMax = 0.01
	DefaultMarketDiffMax  = 0.03
	DefaultUpdateMin      = 3 * time.Second
	DefaultUpdateMax      = 6 * time.Second
	DefaultGeneratorSeed  = 42
)

// DefaultAssets and DefaultMarkets are tracked when none are configured.
var (
	DefaultAssets  = []string{"Copper", "Oil"}
	DefaultMarkets = []string{"US", "UK"}
)

func (c *AnalyzerConfig) applyDefaults() {
	// Source defaults
	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}

	// Tracking defaults
	if len(c.Tracking.Assets) == 0 {
		c.Tracking.Assets = append([]string(nil), DefaultAssets...)
	}
	if len(c.Tracking.Markets) == 0 {
		c.Tracking.Markets = append([]string(nil), DefaultMarkets...)
	}
	c.Tracking.Assets = dedupe(c.Tracking.Assets)
	c.Tracking.Markets = dedupe(c.Tracking.Markets)

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.RetryBackoff == 0 {
		c.Poller.RetryBackoff = DefaultRetryBackoff
	}
	if c.Poller.MergeTimeout == 0 {
		c.Poller.MergeTimeout = DefaultMergeTimeout
	}
	if c.Poller.MaxInFlight == 0 {
		c.Poller.MaxInFlight = DefaultMaxInFlight
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	// Database defaults, only when the journal is enabled
	if c.Database.Enabled() {
		applyDBDefaults(&c.Database.Postgres)
	}

	// Redis defaults
	if c.Redis.Enabled() {
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = DefaultRedisKeyPrefix
		}
		if c.Redis.TTL == 0 {
			c.Redis.TTL = DefaultRedisTTL
		}
		if c.Redis.Channel == "" {
			c.Redis.Channel = DefaultRedisChannel
		}
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}

	applyLoggingDefaults(&c.Logging)
}

func (c *GeneratorConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultGeneratorPort
	}
	if len(c.Assets) == 0 {
		c.Assets = append([]string(nil), DefaultAssets...)
	}
	if len(c.Markets) == 0 {
		c.Markets = append([]string(nil), DefaultMarkets...)
	}
	c.Assets = dedupe(c.Assets)
	c.Markets = dedupe(c.Markets)

	if c.PriceConfig.PriceChangeMax == 0 {
		c.PriceConfig.PriceChangeMax = DefaultPriceChangeMax
	}
	if c.PriceConfig.MarketDiffMax == 0 {
		c.PriceConfig.MarketDiffMax = DefaultMarketDiffMax
	}
	if c.Update.MinInterval == 0 {
		c.Update.MinInterval = DefaultUpdateMin
	}
	if c.Update.MaxInterval == 0 {
		c.Update.MaxInterval = DefaultUpdateMax
	}
	if c.Seed == 0 {
		c.Seed = DefaultGeneratorSeed
	}

	applyLoggingDefaults(&c.Logging)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}
