package finalizer

import (
	"github.com/shopspring/decimal"

	"scanner-approval/internal/types"
)

// size assigns quantities in place. The budget is split across the
// finalized orders, not the original selection.
func size(orders []types.FinalizedOrder, policy types.CapitalPolicy) {
	if policy.Strategy != types.StrategyEqualDistribution || len(orders) == 0 {
		for i := range orders {
			orders[i].Quantity = 1
		}
		return
	}

	share := decimal.NewFromFloat(policy.Capital).Div(decimal.NewFromInt(int64(len(orders))))
	for i := range orders {
		orders[i].Quantity = equalShareQty(share, orders[i].OpenPrice)
	}
}

// equalShareQty is floor(share/open), at least 1 while the share is positive.
func equalShareQty(share decimal.Decimal, open float64) int {
	if open <= 0 || !share.IsPositive() {
		return 1
	}
	qty := share.Div(decimal.NewFromFloat(open)).Floor().IntPart()
	if qty < 1 {
		return 1
	}
	return int(qty)
}
