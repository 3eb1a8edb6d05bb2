package finalizer

import (
	"github.com/shopspring/decimal"

	"scanner-approval/internal/types"
)

// Limit prices are quoted in multiples of 0.1, open snapshots keep paise.
const (
	pricePlaces = 1
	openPlaces  = 2
)

// RoundPrice rounds x to one decimal place, half away from zero.
func RoundPrice(x float64) float64 {
	return decimal.NewFromFloat(x).Round(pricePlaces).InexactFloat64()
}

// price computes the bracket around open: buy below by delta, sell above by delta.
func price(sel types.Selection, open, metric, multiplier float64) types.FinalizedOrder {
	o := decimal.NewFromFloat(open).Round(openPlaces)
	delta := decimal.NewFromFloat(metric).Mul(decimal.NewFromFloat(multiplier))

	return types.FinalizedOrder{
		Row:       sel.Row,
		Action:    sel.Action,
		Delta:     delta.InexactFloat64(),
		OpenPrice: o.InexactFloat64(),
		BuyPrice:  o.Sub(delta).Round(pricePlaces).InexactFloat64(),
		SellPrice: o.Add(delta).Round(pricePlaces).InexactFloat64(),
		Quantity:  1,
	}
}
