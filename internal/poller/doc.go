// Package poller implements the polling driver.
//
// The driver:
//   - Runs one loop per (asset, market) pair until stopped
//   - Checks every fetched quote for arbitrage before merging it
//   - Merges quotes in the background under a deadline, bounded by a gate
//   - Backs off briefly after failed fetches and paces successful ones
package poller
