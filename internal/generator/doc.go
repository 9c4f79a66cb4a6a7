// Package generator implements a mock price source.
//
// Every (asset, market) pair starts near a shared per-asset base price and
// then follows an independent random walk, updated at random intervals.
// Current prices are served on GET /price in the format the analyzer polls.
package generator
