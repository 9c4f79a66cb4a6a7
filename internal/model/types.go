package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidQuote is returned by Quote.Validate for unusable quotes.
var ErrInvalidQuote = errors.New("invalid quote")

// Quote is a single price observation for an asset on one market.
type Quote struct {
	Asset      string    // Tracked asset name (e.g., "Copper")
	Market     string    // Market identifier (e.g., "US")
	Price      float64   // Mid price, > 0
	Spread     float64   // Spread percentage, >= 0
	QuoteID    uuid.UUID // Source-assigned id (uuid.Nil if the source has none)
	ReceivedAt time.Time // Local receive time
}

// Validate checks the quote fields.
func (q Quote) Validate() error {
	switch {
	case q.Asset == "":
		return fmt.Errorf("%w: asset is required", ErrInvalidQuote)
	case q.Market == "":
		return fmt.Errorf("%w: market is required", ErrInvalidQuote)
	case math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price <= 0:
		return fmt.Errorf("%w: price must be > 0, got %v", ErrInvalidQuote, q.Price)
	case math.IsNaN(q.Spread) || math.IsInf(q.Spread, 0) || q.Spread < 0:
		return fmt.Errorf("%w: spread must be >= 0, got %v", ErrInvalidQuote, q.Spread)
	}
	return nil
}

// EffectiveBuy returns the price a buyer pays on the quote's market.
func (q Quote) EffectiveBuy() float64 {
	return EffectiveBuy(q.Price, q.Spread)
}

// EffectiveSell returns the price a seller receives on the quote's market.
func (q Quote) EffectiveSell() float64 {
	return EffectiveSell(q.Price, q.Spread)
}

// AssetBestRecord holds the best known buy and sell quotes for one asset.
type AssetBestRecord struct {
	BestBuyPrice   float64 // Lowest effective buy price (+Inf until the first merge)
	BestBuyMarket  string  // Market that produced BestBuyPrice
	BestSellPrice  float64 // Highest effective sell price (0 until the first merge)
	BestSellMarket string  // Market that produced BestSellPrice
}

// NewAssetBestRecord returns the initial record for an asset. Both sides are
// attributed to initialMarket.
func NewAssetBestRecord(initialMarket string) AssetBestRecord {
	return AssetBestRecord{
		BestBuyPrice:   math.Inf(1),
		BestBuyMarket:  initialMarket,
		BestSellPrice:  0,
		BestSellMarket: initialMarket,
	}
}

// HasBuy reports whether a buy price has been merged.
func (r AssetBestRecord) HasBuy() bool {
	return !math.IsInf(r.BestBuyPrice, 1)
}

// HasSell reports whether a sell price has been merged.
func (r AssetBestRecord) HasSell() bool {
	return r.BestSellPrice > 0
}

// Opportunity is a detected cross-market arbitrage.
type Opportunity struct {
	ID         uuid.UUID `json:"id"`
	Asset      string    `json:"asset"`
	BuyMarket  string    `json:"buy_market"`
	BuyPrice   float64   `json:"buy_price"`
	SellMarket string    `json:"sell_market"`
	SellPrice  float64   `json:"sell_price"`
	QuoteID    uuid.UUID `json:"quote_id"`
	DetectedAt time.Time `json:"detected_at"`
}

// Margin returns the per-unit profit of the opportunity.
func (o Opportunity) Margin() float64 {
	return RoundPrice(o.SellPrice - o.BuyPrice)
}

// String formats the opportunity as a log/alert message.
func (o Opportunity) String() string {
	return fmt.Sprintf("arbitrage on %s: buy at %s for %v, sell at %s for %v",
		o.Asset, o.BuyMarket, o.BuyPrice, o.SellMarket, o.SellPrice)
}
