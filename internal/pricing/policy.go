// Package pricing derives the public sell price from a purchase price.
package pricing

import (
	"errors"
	"math"
	"strconv"

	"github.com/xelth-com/catalogbot/internal/config"
)

const cents = 100.0

var (
	ErrNoPrice       = errors.New("price is missing")
	ErrInvalidPrice  = errors.New("price is negative or not finite")
	ErrInvalidPolicy = errors.New("pricing policy multiplier must be positive")
)

// Policy multiplies the stored price and rounds the result. At or above
// RoundingThreshold (when positive) the price is rounded up to a multiple of
// RoundingStep; below it, to cents.
type Policy struct {
	Multiplier        float64
	RoundingThreshold float64
	RoundingStep      float64
}

// Default leaves prices unchanged
func Default() Policy {
	return Policy{Multiplier: 1}
}

// FromConfig builds a policy from configuration
func FromConfig(c config.PricingConfig) Policy {
	return Policy{
		Multiplier:        c.Multiplier,
		RoundingThreshold: c.RoundingThreshold,
		RoundingStep:      c.RoundingStep,
	}
}

// SellPrice computes the public price
func (p Policy) SellPrice(price *float64) (float64, error) {
	if price == nil {
		return 0, ErrNoPrice
	}
	v := *price
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidPrice
	}
	if p.Multiplier <= 0 || math.IsNaN(p.Multiplier) || math.IsInf(p.Multiplier, 0) {
		return 0, ErrInvalidPolicy
	}

	sell := v * p.Multiplier
	if p.RoundingThreshold > 0 && p.RoundingStep > 0 && sell >= p.RoundingThreshold {
		return math.Ceil(sell/p.RoundingStep) * p.RoundingStep, nil
	}
	return math.Round(sell*cents) / cents, nil
}

// Format prints whole amounts without decimals and anything else with two
func Format(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
