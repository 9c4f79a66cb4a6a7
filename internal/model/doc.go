// Package model defines shared data types used across the arbitrage tracker.
//
// Conventions:
//   - Prices: float64 in quote currency, effective prices rounded to 4 decimal digits
//   - Spreads: percentages (2 = 2%)
//   - IDs: uuid.UUID for quotes and opportunities
//   - Timestamps: time.Time in UTC
package model
