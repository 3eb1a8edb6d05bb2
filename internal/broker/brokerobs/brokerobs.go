package brokerobs

import (
	"context"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/metrics"
	"scanner-approval/internal/trace"
	"scanner-approval/internal/types"
)

// observableBroker wraps a Broker with observability (logging, tracing, metrics)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) OpenAndLastPrice(ctx context.Context, symbol string) types.Quote {
	ctx, span := trace.StartSpan(ctx, "broker.OpenAndLastPrice")
	defer span.End()

	q := ob.broker.OpenAndLastPrice(ctx, symbol)
	if q.Err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Could not fetch quote", q.Err, "symbol", symbol)
		return q
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "open", q.Open, "last", q.Last)
	return q
}

func (ob *observableBroker) LastPrices(ctx context.Context, symbols []string) map[string]float64 {
	ctx, span := trace.StartSpan(ctx, "broker.LastPrices")
	defer span.End()

	prices := ob.broker.LastPrices(ctx, symbols)
	if len(prices) < len(symbols) {
		logger.Warn(ctx, "Some last prices unavailable", "requested", len(symbols), "priced", len(prices))
	}
	return prices
}

// PlaceLimitOrder places an order with observability
func (ob *observableBroker) PlaceLimitOrder(ctx context.Context, req types.LimitOrder) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceLimitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"price", req.Price,
		"tag", req.Tag,
	)

	id, err := ob.broker.PlaceLimitOrder(ctx, req)
	logger.Order(ctx, req.Symbol, string(req.Side), req.Qty, req.Price, id, err, "tag", req.Tag)
	metrics.ObserveOrder(req.Side, err)
	return id, err
}

func (ob *observableBroker) ListOrders(ctx context.Context) ([]types.OrderRecord, error) {
	ctx, span := trace.StartSpan(ctx, "broker.ListOrders")
	defer span.End()

	orders, err := ob.broker.ListOrders(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list orders", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Order book fetched", "count", len(orders))
	return orders, nil
}

func (ob *observableBroker) CancelOrder(ctx context.Context, order types.OrderRecord) error {
	ctx, span := trace.StartSpan(ctx, "broker.CancelOrder")
	defer span.End()

	err := ob.broker.CancelOrder(ctx, order)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to cancel order", err,
			"order_id", order.OrderID,
			"symbol", order.Symbol,
		)
		return err
	}

	logger.InfoSkip(ctx, 1, "Order cancelled", "order_id", order.OrderID, "symbol", order.Symbol)
	return nil
}
