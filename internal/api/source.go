package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/arbwatch/internal/model"
)

// Source fetches quotes for the poller. It never returns errors: transport
// failures, non-2xx responses and malformed payloads all mean "no quote".
type Source struct {
	client  *Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewSource wraps client, bounding each fetch by timeout.
func NewSource(client *Client, timeout time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		client:  client,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchQuote returns the current quote for asset on market, or false if none
// could be obtained.
func (s *Source) FetchQuote(ctx context.Context, asset, market string) (model.Quote, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.GetPrice(ctx, asset, market)
	if err != nil {
		s.logger.Error("fetch price failed",
			"asset", asset,
			"market", market,
			"error", err,
		)
		return model.Quote{}, false
	}

	q := resp.ToQuote(s.now().UTC())
	if err := s.check(q, asset, market); err != nil {
		s.logger.Error("malformed price payload",
			"asset", asset,
			"market", market,
			"error", err,
		)
		return model.Quote{}, false
	}

	s.logger.Debug("received quote",
		"asset", asset,
		"market", market,
		"price", q.Price,
		"spread", q.Spread,
	)
	return q, true
}

// check validates q and that it answers the request for asset/market.
func (s *Source) check(q model.Quote, asset, market string) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.Asset != asset || q.Market != market {
		return fmt.Errorf("%w: asked for %s/%s, got %s/%s",
			model.ErrInvalidQuote, asset, market, q.Asset, q.Market)
	}
	return nil
}
