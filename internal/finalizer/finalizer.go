package finalizer

import (
	"context"
	"errors"
	"fmt"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/metrics"
	"scanner-approval/internal/types"
)

// ErrNothingFinalizable is returned when every selected row was dropped.
var ErrNothingFinalizable = errors.New("no orders finalizable")

// Skip reasons reported to the operator.
const (
	ReasonQuoteUnavailable  = "quote unavailable"
	ReasonMetricUnavailable = "metric unavailable"
	ReasonNonPositivePrice  = "non-positive limit price"
	ReasonBuyLegDropped     = "buy leg dropped, non-positive limit price"
)

// Params are the sizing inputs for one finalization pass.
type Params struct {
	Metric     types.Metric
	Multiplier float64
	Policy     types.CapitalPolicy
}

// Validate checks Params before any quote is fetched.
func (p Params) Validate() error {
	if p.Multiplier < 0 {
		return fmt.Errorf("multiplier must be non-negative, got %.2f", p.Multiplier)
	}
	switch p.Policy.Strategy {
	case types.StrategyOneEach:
	case types.StrategyEqualDistribution:
		if p.Policy.Capital <= 0 {
			return fmt.Errorf("capital must be positive for %s, got %.2f", p.Policy.Strategy, p.Policy.Capital)
		}
	default:
		return fmt.Errorf("unknown strategy %q", p.Policy.Strategy)
	}
	return nil
}

// Skip is one row dropped during finalization.
type Skip struct {
	Symbol string
	Reason string
	Err    error
}

func (s Skip) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", s.Symbol, s.Reason, s.Err)
	}
	return s.Symbol + ": " + s.Reason
}

// Result is the finalized batch plus every row that did not make it.
// A BOTH row that lost its buy leg is finalized as SELL and also noted in Skipped.
type Result struct {
	Orders  []types.FinalizedOrder
	Skipped []Skip
}

// Finalizer turns operator selections into priced, sized orders.
type Finalizer struct {
	broker interfaces.Broker
}

func New(broker interfaces.Broker) *Finalizer {
	return &Finalizer{broker: broker}
}

// Finalize prices and sizes selections against the current open prices.
// SKIP selections are ignored. Rows without a usable quote or metric are
// reported in Result.Skipped. ErrNothingFinalizable is returned alongside
// the skips when no order survives.
func (f *Finalizer) Finalize(ctx context.Context, selections []types.Selection, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	op := logger.StartOperation(ctx, "finalizer.Finalize", "selected", len(selections))
	ctx = op.GetContext()

	var res Result
	skip := func(symbol, reason string, err error) {
		res.Skipped = append(res.Skipped, Skip{Symbol: symbol, Reason: reason, Err: err})
		if err != nil {
			logger.Skip(ctx, symbol, reason, "error", err)
		} else {
			logger.Skip(ctx, symbol, reason)
		}
		metrics.IncSkipped(reason)
	}

	quotes := map[string]types.Quote{}
	for _, sel := range selections {
		if sel.Action == types.ActionSkip {
			continue
		}
		sym := sel.Row.Symbol

		metric, ok := sel.Row.Value(p.Metric)
		if !ok {
			skip(sym, ReasonMetricUnavailable, nil)
			continue
		}

		q, seen := quotes[sym]
		if !seen {
			q = f.broker.OpenAndLastPrice(ctx, sym)
			quotes[sym] = q
		}
		if !q.Available() {
			skip(sym, ReasonQuoteUnavailable, q.Err)
			continue
		}

		order := price(sel, q.Open, metric, p.Multiplier)
		// A BOTH row keeps its sell leg when only the buy leg is unusable.
		if order.Action == types.ActionBoth && order.BuyPrice <= 0 && order.SellPrice > 0 {
			order.Action = types.ActionSell
			skip(sym, ReasonBuyLegDropped, nil)
		}
		if !pricesPositive(order) {
			skip(sym, ReasonNonPositivePrice, nil)
			continue
		}
		res.Orders = append(res.Orders, order)
	}

	if len(res.Orders) == 0 {
		op.EndWithError(ErrNothingFinalizable, "skipped", len(res.Skipped))
		return res, ErrNothingFinalizable
	}

	size(res.Orders, p.Policy)

	op.End("finalized", len(res.Orders), "skipped", len(res.Skipped))
	return res, nil
}

// pricesPositive reports whether every side the action places has a usable price.
func pricesPositive(o types.FinalizedOrder) bool {
	for _, side := range o.Action.Sides() {
		if o.Price(side) <= 0 {
			return false
		}
	}
	return true
}
