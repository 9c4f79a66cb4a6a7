package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal digits kept in effective prices.
const PricePrecision = 4

// RoundPrice rounds p to PricePrecision digits, half away from zero.
// Non-finite values are returned unchanged.
func RoundPrice(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return p
	}
	return decimal.NewFromFloat(p).Round(PricePrecision).InexactFloat64()
}

// EffectiveBuy returns price * (1 + spread/100) rounded to PricePrecision.
func EffectiveBuy(price, spread float64) float64 {
	return RoundPrice(price * (1 + spread/100))
}

// EffectiveSell returns price * (1 - spread/100) rounded to PricePrecision.
func EffectiveSell(price, spread float64) float64 {
	return RoundPrice(price * (1 - spread/100))
}
