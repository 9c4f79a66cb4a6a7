package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *AnalyzerConfig) Validate() error {
	u, err := url.Parse(c.Source.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.url must be an absolute URL, got %q", c.Source.URL)
	}
	if c.Source.Timeout <= 0 {
		return errors.New("source.timeout must be > 0")
	}
	if c.Source.MaxRetries < 0 {
		return errors.New("source.max_retries must be >= 0")
	}

	if err := validateNames("tracking.assets", c.Tracking.Assets); err != nil {
		return err
	}
	if err := validateNames("tracking.markets", c.Tracking.Markets); err != nil {
		return err
	}

	if c.Poller.Interval < 0 {
		return errors.New("poller.interval must be >= 0")
	}
	if c.Poller.RetryBackoff < 0 {
		return errors.New("poller.retry_backoff must be >= 0")
	}
	if c.Poller.MergeTimeout <= 0 {
		return errors.New("poller.merge_timeout must be > 0")
	}
	if c.Poller.MaxInFlight < 1 {
		return errors.New("poller.max_in_flight must be >= 1")
	}

	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}

	if c.Database.Enabled() {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Redis.Enabled() && c.Redis.DB < 0 {
		return errors.New("redis.db must be >= 0")
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}
	if c.Writer.FlushInterval <= 0 {
		return errors.New("writer.flush_interval must be > 0")
	}

	return c.Logging.validate()
}

// Validate checks the generator configuration.
func (c *GeneratorConfig) Validate() error {
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validateNames("assets", c.Assets); err != nil {
		return err
	}
	if err := validateNames("markets", c.Markets); err != nil {
		return err
	}

	p := c.PriceConfig
	if p.PriceMin <= 0 {
		return errors.New("price_config.price_min must be > 0")
	}
	if p.PriceMax <= 0 {
		return errors.New("price_config.price_max must be > 0")
	}
	if p.PriceMin > p.PriceMax {
		return fmt.Errorf("price_config.price_min (%v) cannot exceed price_max (%v)", p.PriceMin, p.PriceMax)
	}
	if p.SpreadMin < 0 {
		return errors.New("price_config.spread_min must be >= 0")
	}
	if p.SpreadMax <= 0 {
		return errors.New("price_config.spread_max must be > 0")
	}
	if p.SpreadMin > p.SpreadMax {
		return fmt.Errorf("price_config.spread_min (%v) cannot exceed spread_max (%v)", p.SpreadMin, p.SpreadMax)
	}
	if p.PriceChangeMax <= 0 || p.PriceChangeMax >= 1 {
		return fmt.Errorf("price_config.price_change_max must be in (0, 1), got %v", p.PriceChangeMax)
	}
	if p.MarketDiffMax < 0 || p.MarketDiffMax >= 1 {
		return fmt.Errorf("price_config.market_diff_max must be in [0, 1), got %v", p.MarketDiffMax)
	}

	if c.Update.MinInterval <= 0 {
		return errors.New("update.min_interval must be > 0")
	}
	if c.Update.MinInterval > c.Update.MaxInterval {
		return fmt.Errorf("update.min_interval (%v) cannot exceed max_interval (%v)", c.Update.MinInterval, c.Update.MaxInterval)
	}

	return c.Logging.validate()
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (l LoggingConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", l.Format)
	}
	return nil
}

func validateNames(field string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%s must not be empty", field)
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%s[%d] must not be blank", field, i)
		}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", field, port)
	}
	return nil
}
