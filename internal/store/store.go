package store

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rickgao/arbwatch/internal/model"
)

// ErrUnknownAsset is returned when an asset is not in the tracked set.
var ErrUnknownAsset = errors.New("unknown asset")

// MergeResult describes the outcome of a Merge.
type MergeResult struct {
	Record      model.AssetBestRecord // Post-merge record
	BuyUpdated  bool
	SellUpdated bool

	// Version counts changes to the asset's record. It increases by one on
	// every merge that updates a side, so later states always carry a
	// larger version.
	Version uint64
}

// Updated reports whether either side was overwritten.
func (r MergeResult) Updated() bool {
	return r.BuyUpdated || r.SellUpdated
}

// Option configures a Store.
type Option func(*Store)

// WithInitialMarket sets the market attributed to both sides of every
// initial record. Defaults to "", which never matches a real market.
func WithInitialMarket(market string) Option {
	return func(s *Store) {
		s.initialMarket = market
	}
}

// Store maps asset names to their best known quotes.
type Store struct {
	initialMarket string

	mu       sync.Mutex
	records  map[string]model.AssetBestRecord
	versions map[string]uint64
}

// New creates a store tracking the given assets. Duplicate names collapse
// into one entry.
func New(assets []string, opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}

	s.records = make(map[string]model.AssetBestRecord, len(assets))
	s.versions = make(map[string]uint64, len(assets))
	for _, asset := range assets {
		s.records[asset] = model.NewAssetBestRecord(s.initialMarket)
		s.versions[asset] = 0
	}
	return s
}

// Read returns a copy of the asset's current record.
func (s *Store) Read(asset string) (model.AssetBestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[asset]
	if !ok {
		return model.AssetBestRecord{}, fmt.Errorf("read %q: %w", asset, ErrUnknownAsset)
	}
	return rec, nil
}

// Merge folds a quote into the asset's record.
//
// Each side is decided against the pre-merge record:
//   - buy is overwritten when the effective buy is lower, or the quote comes
//     from the market currently holding the best buy
//   - sell is overwritten when the effective sell is higher, or the quote
//     comes from the market currently holding the best sell
//
// The holding market always refreshes its own price, even to a worse value,
// so a market that stops offering a good price cannot keep it by omission.
func (s *Store) Merge(asset string, q model.Quote) (MergeResult, error) {
	buy := q.EffectiveBuy()
	sell := q.EffectiveSell()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[asset]
	if !ok {
		return MergeResult{}, fmt.Errorf("merge %q: %w", asset, ErrUnknownAsset)
	}

	next := cur
	res := MergeResult{}

	if buy < cur.BestBuyPrice || q.Market == cur.BestBuyMarket {
		next.BestBuyPrice = buy
		next.BestBuyMarket = q.Market
		res.BuyUpdated = true
	}
	if sell > cur.BestSellPrice || q.Market == cur.BestSellMarket {
		next.BestSellPrice = sell
		next.BestSellMarket = q.Market
		res.SellUpdated = true
	}

	if res.Updated() {
		s.records[asset] = next
		s.versions[asset]++
	}
	res.Record = next
	res.Version = s.versions[asset]
	return res, nil
}

// Snapshot returns a copy of every record, taken under one lock hold.
func (s *Store) Snapshot() map[string]model.AssetBestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

// Assets returns the tracked asset names in sorted order.
func (s *Store) Assets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.records))
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
