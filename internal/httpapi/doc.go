// Package httpapi exposes the analyzer's state over HTTP.
//
// Routes:
//   - GET /health
//   - GET /prices and /prices/{asset}
//   - GET /stats
//   - GET /ws/opportunities (WebSocket alert feed)
package httpapi
