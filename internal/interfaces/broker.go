package interfaces

import (
	"context"

	"scanner-approval/internal/types"
)

// Broker is the narrow market data and order gateway used by the workflow.
type Broker interface {
	// OpenAndLastPrice never fails loudly; a failed lookup is carried in Quote.Err.
	OpenAndLastPrice(ctx context.Context, symbol string) types.Quote

	// LastPrices returns whatever subset of symbols could be priced.
	LastPrices(ctx context.Context, symbols []string) map[string]float64

	// PlaceLimitOrder returns the broker order id. Errors must be surfaced.
	PlaceLimitOrder(ctx context.Context, req types.LimitOrder) (string, error)

	ListOrders(ctx context.Context) ([]types.OrderRecord, error)

	CancelOrder(ctx context.Context, order types.OrderRecord) error
}
