// Package api provides the HTTP client for the price source.
//
// Endpoint:
//   - GET /price?asset_name={asset}&market={market}
//
// Response: {"name", "market", "price", "spread", "price_quote_id"}.
// Source wraps the client for the poller and turns every failure into "no quote".
package api
