package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParlayOdds derives the effective odds of a parlay as the product of the
// leg odds. Parlay odds are never entered directly. Legs with odds <= 1 are
// rejected before the product is computed.
func ParlayOdds(legs []ParlayLeg) (float64, error) {
	if len(legs) < 2 {
		return 0, fmt.Errorf("%w: parlay needs at least 2 legs", ErrValidation)
	}
	product := decimal.NewFromInt(1)
	for _, leg := range legs {
		if leg.Odds <= 1 {
			return 0, fmt.Errorf("%w: parlay leg odds must be > 1", ErrValidation)
		}
		product = product.Mul(decimal.NewFromFloat(leg.Odds))
	}
	f, _ := product.Float64()
	return f, nil
}

// FormatOdds renders odds for display with two decimals ("3.255" -> "3.26").
func FormatOdds(odds float64) string {
	return decimal.NewFromFloat(odds).Round(2).StringFixed(2)
}

// FormatAmount renders a monetary value for display with two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
