// Package detector checks incoming quotes for cross-market arbitrage against
// the best known prices in a store.
package detector

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/arbwatch/internal/model"
	"github.com/rickgao/arbwatch/internal/store"
)

// RecordReader provides snapshot reads of asset records.
type RecordReader interface {
	Read(asset string) (model.AssetBestRecord, error)
}

// Result is the outcome of a detection pass.
type Result struct {
	Found         bool
	Messages      []string
	Opportunities []model.Opportunity
}

// Detector compares quotes against stored records. It never mutates the store.
type Detector struct {
	records RecordReader
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Detector reading from records.
func New(records RecordReader, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

// Detect checks q against the current record for its asset. It must run
// before q is merged, otherwise a quote could be compared against itself.
//
// Two independent conditions are checked:
//   - effective buy below the stored best sell: buy at q.Market, sell at the stored sell market
//   - effective sell above the stored best buy: buy at the stored buy market, sell at q.Market
func (d *Detector) Detect(q model.Quote) Result {
	rec, err := d.records.Read(q.Asset)
	if err != nil {
		if !errors.Is(err, store.ErrUnknownAsset) {
			d.logger.Warn("read record failed", "asset", q.Asset, "error", err)
		}
		return Result{}
	}

	buy := q.EffectiveBuy()
	sell := q.EffectiveSell()
	detectedAt := d.now().UTC()

	var res Result

	if buy < rec.BestSellPrice {
		res.add(model.Opportunity{
			ID:         uuid.New(),
			Asset:      q.Asset,
			BuyMarket:  q.Market,
			BuyPrice:   buy,
			SellMarket: rec.BestSellMarket,
			SellPrice:  rec.BestSellPrice,
			QuoteID:    q.QuoteID,
			DetectedAt: detectedAt,
		})
	}

	if sell > rec.BestBuyPrice {
		res.add(model.Opportunity{
			ID:         uuid.New(),
			Asset:      q.Asset,
			BuyMarket:  rec.BestBuyMarket,
			BuyPrice:   rec.BestBuyPrice,
			SellMarket: q.Market,
			SellPrice:  sell,
			QuoteID:    q.QuoteID,
			DetectedAt: detectedAt,
		})
	}

	for _, msg := range res.Messages {
		d.logger.Debug(msg, "asset", q.Asset, "market", q.Market)
	}
	return res
}

func (r *Result) add(o model.Opportunity) {
	r.Found = true
	r.Opportunities = append(r.Opportunities, o)
	r.Messages = append(r.Messages, fmt.Sprintf(
		"Arbitrage possibility detected for %s: buy at %s (%v), sell at %s (%v)",
		o.Asset, o.BuyMarket, o.BuyPrice, o.SellMarket, o.SellPrice,
	))
}
