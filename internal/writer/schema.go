package writer

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id          UUID PRIMARY KEY,
	asset       TEXT NOT NULL,
	buy_market  TEXT NOT NULL,
	buy_price   DOUBLE PRECISION NOT NULL,
	sell_market TEXT NOT NULL,
	sell_price  DOUBLE PRECISION NOT NULL,
	margin      DOUBLE PRECISION NOT NULL,
	quote_id    UUID,
	detected_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arbitrage_opportunities_asset_detected
	ON arbitrage_opportunities (asset, detected_at DESC);
`

const insertSQL = `
	INSERT INTO arbitrage_opportunities
		(id, asset, buy_market, buy_price, sell_market, sell_price, margin, quote_id, detected_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

// EnsureSchema creates the journal table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create arbitrage_opportunities: %w", err)
	}
	return nil
}
