package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/arbwatch/internal/config"
)

// Price is the current state of one pair.
type Price struct {
	Asset  string
	Market string
	Price  float64
	Spread float64
}

type pairKey struct {
	asset  string
	market string
}

// Manager owns generated prices. Safe for concurrent use.
type Manager struct {
	cfg    config.PriceConfig
	update config.UpdateConfig
	logger *slog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[pairKey]*Price
}

// NewManager initializes prices for every pair in cfg.
func NewManager(cfg config.GeneratorConfig, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Assets) == 0 || len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("generator needs at least one asset and one market")
	}

	m := &Manager{
		cfg:    cfg.PriceConfig,
		update: cfg.Update,
		logger: logger,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		prices: make(map[pairKey]*Price, len(cfg.Assets)*len(cfg.Markets)),
	}

	for _, asset := range cfg.Assets {
		m.initAsset(asset, cfg.Markets)
	}
	return m, nil
}

// initAsset draws a base price and derives a per-market starting price.
// Only called during construction.
func (m *Manager) initAsset(asset string, markets []string) {
	base := round(m.uniformLocked(m.cfg.PriceMin, m.cfg.PriceMax), 4)
	for _, market := range markets {
		coef := m.uniformLocked(-m.cfg.MarketDiffMax, m.cfg.MarketDiffMax)
		m.prices[pairKey{asset, market}] = &Price{
			Asset:  asset,
			Market: market,
			Price:  round(base*(1+coef), 4),
			Spread: m.newSpread(),
		}
	}
}

// Get returns the current price of a pair.
func (m *Manager) Get(asset, market string) (Price, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[pairKey{asset, market}]
	if !ok {
		return Price{}, false
	}
	return *p, true
}

// Step advances a pair by one random-walk step and returns the new price.
func (m *Manager) Step(asset, market string) (Price, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[pairKey{asset, market}]
	if !ok {
		return Price{}, false
	}

	p.Price = m.nextPrice(p.Price)
	p.Spread = m.newSpread()
	return *p, true
}

// Pairs returns all pairs sorted by asset, then market.
func (m *Manager) Pairs() []Price {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Price, 0, len(m.prices))
	for _, p := range m.prices {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Market < out[j].Market
	})
	return out
}

// Run updates every pair in its own loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range m.Pairs() {
		asset, market := p.Asset, p.Market
		g.Go(func() error {
			return m.runPair(ctx, asset, market)
		})
	}

	m.logger.Info("price updates started",
		"pairs", len(m.prices),
		"min_interval", m.update.MinInterval,
		"max_interval", m.update.MaxInterval,
	)
	return g.Wait()
}

func (m *Manager) runPair(ctx context.Context, asset, market string) error {
	for {
		delay := m.nextInterval()
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		p, _ := m.Step(asset, market)
		m.logger.Debug("price updated",
			"asset", asset,
			"market", market,
			"price", p.Price,
			"spread", p.Spread,
			"slept", delay,
		)
	}
}

// nextPrice applies a random relative change. A non-positive result is
// replaced by the maximum upward move. Caller holds mu.
func (m *Manager) nextPrice(cur float64) float64 {
	maxChange := m.cfg.PriceChangeMax
	next := round(cur*(1+m.uniformLocked(-maxChange, maxChange)), 4)
	if next <= 0 {
		next = cur * (1 + maxChange)
	}
	return next
}

// newSpread draws a spread rounded to one decimal. Caller holds mu.
func (m *Manager) newSpread() float64 {
	return round(m.uniformLocked(m.cfg.SpreadMin, m.cfg.SpreadMax), 1)
}

// nextInterval draws the delay before the next update.
func (m *Manager) nextInterval() time.Duration {
	lo := float64(m.update.MinInterval)
	hi := float64(m.update.MaxInterval)
	return time.Duration(m.uniform(lo, hi)).Round(time.Millisecond)
}

func (m *Manager) uniform(lo, hi float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniformLocked(lo, hi)
}

func (m *Manager) uniformLocked(lo, hi float64) float64 {
	return lo + (hi-lo)*m.rng.Float64()
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
