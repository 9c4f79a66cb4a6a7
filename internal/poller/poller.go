package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/arbwatch/internal/coordinator"
	"github.com/rickgao/arbwatch/internal/detector"
	"github.com/rickgao/arbwatch/internal/model"
)

// QuoteSource fetches the current quote for a pair.
type QuoteSource interface {
	FetchQuote(ctx context.Context, asset, market string) (model.Quote, bool)
}

// Detector checks a quote against the stored records.
type Detector interface {
	Detect(q model.Quote) detector.Result
}

// OpportunitySink receives detected opportunities. Publish must not block.
type OpportunitySink interface {
	Publish(opp model.Opportunity)
}

// RecordSink receives records changed by a merge. Calls for one asset may
// arrive concurrently and out of order; version grows with every change, so
// a sink keeps the record with the highest version it has seen.
type RecordSink interface {
	HandleRecord(ctx context.Context, asset string, rec model.AssetBestRecord, version uint64) error
}

// OpportunitySinkFunc is a function adapter for OpportunitySink.
type OpportunitySinkFunc func(model.Opportunity)

func (f OpportunitySinkFunc) Publish(opp model.Opportunity) {
	f(opp)
}

// Pair identifies one polled (asset, market) combination.
type Pair struct {
	Asset  string
	Market string
}

// Pairs returns the cross product of assets and markets.
func Pairs(assets, markets []string) []Pair {
	pairs := make([]Pair, 0, len(assets)*len(markets))
	for _, a := range assets {
		for _, m := range markets {
			pairs = append(pairs, Pair{Asset: a, Market: m})
		}
	}
	return pairs
}

// Config holds poller configuration.
type Config struct {
	Interval     time.Duration // Pacing after each processed quote (default: 1s)
	RetryBackoff time.Duration // Delay after a failed fetch (default: 100ms)
	MergeTimeout time.Duration // Deadline for a single merge (default: 2s)
	MaxInFlight  int           // Max background merges (default: 200)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Second,
		RetryBackoff: 100 * time.Millisecond,
		MergeTimeout: 2 * time.Second,
		MaxInFlight:  coordinator.DefaultGateCapacity,
	}
}

// Stats holds poller counters.
type Stats struct {
	Fetched       int64 `json:"fetched"`
	FetchFailures int64 `json:"fetch_failures"`
	Opportunities int64 `json:"opportunities"`
	Merges        int64 `json:"merges"`
	MergeTimeouts int64 `json:"merge_timeouts"`
	MergeErrors   int64 `json:"merge_errors"`
	InFlight      int   `json:"in_flight"`

	// Timed-out merges still running in the background. They hold no gate
	// permit, so InFlight does not include them.
	AbandonedMerges int64 `json:"abandoned_merges"`
	AbandonedTotal  int64 `json:"abandoned_total"`
}

// Option configures a Poller.
type Option func(*Poller)

// WithOpportunitySink sets where detected opportunities are published.
func WithOpportunitySink(s OpportunitySink) Option {
	return func(p *Poller) {
		p.opps = s
	}
}

// WithRecordSink sets where changed records are forwarded after a merge.
func WithRecordSink(s RecordSink) Option {
	return func(p *Poller) {
		p.records = s
	}
}

// Poller drives fetch, detect and merge for every pair.
type Poller struct {
	cfg      Config
	pairs    []Pair
	source   QuoteSource
	detector Detector
	merger   coordinator.Merger
	opps     OpportunitySink
	records  RecordSink
	gate     *coordinator.Gate
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fetched       atomic.Int64
	fetchFailures atomic.Int64
	opportunities atomic.Int64
	merges        atomic.Int64
	mergeTimeouts atomic.Int64
	mergeErrors   atomic.Int64
	abandoned     coordinator.Abandoned
}

// New creates a new Poller.
func New(cfg Config, pairs []Pair, source QuoteSource, det Detector, merger coordinator.Merger, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.MergeTimeout <= 0 {
		cfg.MergeTimeout = defaults.MergeTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaults.MaxInFlight
	}

	p := &Poller{
		cfg:      cfg,
		pairs:    pairs,
		source:   source,
		detector: det,
		merger:   merger,
		gate:     coordinator.NewGate(cfg.MaxInFlight),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches one loop per pair.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, pair := range p.pairs {
		p.wg.Add(1)
		go p.run(pair)
	}

	p.logger.Info("poller started",
		"pairs", len(p.pairs),
		"interval", p.cfg.Interval,
		"max_in_flight", p.cfg.MaxInFlight,
	)

	return nil
}

// Stop cancels the loops, then waits for in-flight merges to finish.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.gate.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped",
			"fetched", p.fetched.Load(),
			"merges", p.merges.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Fetched:       p.fetched.Load(),
		FetchFailures: p.fetchFailures.Load(),
		Opportunities: p.opportunities.Load(),
		Merges:        p.merges.Load(),
		MergeTimeouts: p.mergeTimeouts.Load(),
		MergeErrors:   p.mergeErrors.Load(),
		InFlight:      p.gate.InFlight(),

		AbandonedMerges: p.abandoned.Running(),
		AbandonedTotal:  p.abandoned.Total(),
	}
}

// run polls a single pair until the poller is stopped.
func (p *Poller) run(pair Pair) {
	defer p.wg.Done()

	for p.ctx.Err() == nil {
		q, ok := p.source.FetchQuote(p.ctx, pair.Asset, pair.Market)
		if !ok {
			p.fetchFailures.Add(1)
			if !p.sleep(p.cfg.RetryBackoff) {
				return
			}
			continue
		}
		p.fetched.Add(1)

		if !p.process(q) {
			return
		}
		if !p.sleep(p.cfg.Interval) {
			return
		}
	}
}

// process detects against the pre-merge state, then schedules the merge.
// Returns false if the poller stopped while waiting for a gate permit.
func (p *Poller) process(q model.Quote) bool {
	res := p.detector.Detect(q)
	for i, opp := range res.Opportunities {
		p.opportunities.Add(1)
		p.logger.Info(res.Messages[i], "opportunity_id", opp.ID)
		if p.opps != nil {
			p.opps.Publish(opp)
		}
	}

	// Merges outlive the loop context so Stop can drain them.
	mergeCtx := context.WithoutCancel(p.ctx)
	if err := p.gate.Go(p.ctx, func() { p.merge(mergeCtx, q) }); err != nil {
		p.logger.Debug("merge not scheduled", "asset", q.Asset, "market", q.Market, "error", err)
		return false
	}
	return true
}

func (p *Poller) merge(ctx context.Context, q model.Quote) {
	res, err := coordinator.BoundedMergeTracked(ctx, p.merger, q.Asset, q, p.cfg.MergeTimeout, &p.abandoned)
	switch {
	case errors.Is(err, coordinator.ErrTimedOut):
		p.mergeTimeouts.Add(1)
		p.logger.Error("merge timed out",
			"asset", q.Asset,
			"market", q.Market,
			"timeout", p.cfg.MergeTimeout,
			"abandoned", p.abandoned.Running(),
		)
		return
	case err != nil:
		p.mergeErrors.Add(1)
		p.logger.Error("merge failed",
			"asset", q.Asset,
			"market", q.Market,
			"error", err,
		)
		return
	}

	p.merges.Add(1)
	if !res.Updated() || p.records == nil {
		return
	}
	if err := p.records.HandleRecord(ctx, q.Asset, res.Record, res.Version); err != nil {
		p.logger.Warn("record sink failed", "asset", q.Asset, "error", err)
	}
}

// sleep waits for d or until the poller stops. Returns false on stop.
func (p *Poller) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-p.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
