package finalizer

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"scanner-approval/internal/types"
)

type fakeBroker struct {
	quotes map[string]types.Quote
	calls  map[string]int
}

func newFakeBroker(opens map[string]float64) *fakeBroker {
	fb := &fakeBroker{quotes: map[string]types.Quote{}, calls: map[string]int{}}
	for sym, open := range opens {
		q := types.Quote{Symbol: sym, Open: open, Last: open}
		if open <= 0 {
			q.Err = errors.New("open price unavailable")
		}
		fb.quotes[sym] = q
	}
	return fb
}

func (f *fakeBroker) OpenAndLastPrice(ctx context.Context, symbol string) types.Quote {
	f.calls[symbol]++
	q, ok := f.quotes[symbol]
	if !ok {
		return types.Quote{Symbol: symbol, Err: errors.New("unknown instrument")}
	}
	return q
}

func (f *fakeBroker) LastPrices(ctx context.Context, symbols []string) map[string]float64 {
	return nil
}

func (f *fakeBroker) PlaceLimitOrder(ctx context.Context, req types.LimitOrder) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeBroker) ListOrders(ctx context.Context) ([]types.OrderRecord, error) {
	return nil, nil
}

func (f *fakeBroker) CancelOrder(ctx context.Context, order types.OrderRecord) error {
	return nil
}

func sel(symbol string, tr float64, a types.Action) types.Selection {
	return types.Selection{Row: types.ScannerRow{Symbol: symbol, TrueRange: tr}, Action: a}
}

func oneEach(multiplier float64) Params {
	return Params{
		Metric:     types.MetricTrueRange,
		Multiplier: multiplier,
		Policy:     types.CapitalPolicy{Strategy: types.StrategyOneEach},
	}
}

func isTenth(x float64) bool {
	scaled := x * 10
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}

func TestFinalizeBracketAroundOpen(t *testing.T) {
	f := New(newFakeBroker(map[string]float64{"INFY": 100}))

	res, err := f.Finalize(context.Background(), []types.Selection{sel("INFY", 5, types.ActionBoth)}, oneEach(1.5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(res.Orders))
	}
	o := res.Orders[0]
	if o.Delta != 7.5 {
		t.Errorf("Expected delta 7.5, got %v", o.Delta)
	}
	if o.BuyPrice != 92.5 || o.SellPrice != 107.5 {
		t.Errorf("Expected buy 92.5 / sell 107.5, got %v / %v", o.BuyPrice, o.SellPrice)
	}
	if o.Quantity != 1 {
		t.Errorf("Expected quantity 1, got %d", o.Quantity)
	}
}

func TestFinalizeEqualDistribution(t *testing.T) {
	f := New(newFakeBroker(map[string]float64{"AAA": 100, "BBB": 400}))
	p := Params{
		Metric:     types.MetricTrueRange,
		Multiplier: 1,
		Policy:     types.CapitalPolicy{Capital: 100000, Strategy: types.StrategyEqualDistribution},
	}

	res, err := f.Finalize(context.Background(), []types.Selection{
		sel("AAA", 2, types.ActionBuy),
		sel("BBB", 2, types.ActionSell),
	}, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Orders[0].Quantity != 500 || res.Orders[1].Quantity != 125 {
		t.Errorf("Expected quantities 500 and 125, got %d and %d", res.Orders[0].Quantity, res.Orders[1].Quantity)
	}
}

func TestFinalizeCapitalBound(t *testing.T) {
	opens := map[string]float64{"A": 133.37, "B": 871.2, "C": 45.05, "D": 2999.99}
	f := New(newFakeBroker(opens))
	capital := 25000.0
	p := Params{
		Metric:     types.MetricTrueRange,
		Multiplier: 0.5,
		Policy:     types.CapitalPolicy{Capital: capital, Strategy: types.StrategyEqualDistribution},
	}

	var sels []types.Selection
	for _, s := range []string{"A", "B", "C", "D"} {
		sels = append(sels, sel(s, 3, types.ActionBuy))
	}
	res, err := f.Finalize(context.Background(), sels, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var spent float64
	for _, o := range res.Orders {
		if o.Quantity < 1 {
			t.Errorf("Expected positive quantity for %s, got %d", o.Row.Symbol, o.Quantity)
		}
		spent += float64(o.Quantity) * o.OpenPrice
	}
	if spent > capital {
		t.Errorf("Expected spend within %v, got %v", capital, spent)
	}
}

func TestFinalizeMinimumQuantity(t *testing.T) {
	f := New(newFakeBroker(map[string]float64{"MRF": 120000}))
	p := Params{
		Metric:     types.MetricTrueRange,
		Multiplier: 1,
		Policy:     types.CapitalPolicy{Capital: 1000, Strategy: types.StrategyEqualDistribution},
	}
	res, err := f.Finalize(context.Background(), []types.Selection{sel("MRF", 500, types.ActionBuy)}, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Orders[0].Quantity != 1 {
		t.Errorf("Expected minimum quantity 1, got %d", res.Orders[0].Quantity)
	}
}

func TestFinalizeDropsUnavailableQuotes(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"INFY": 100, "ZERO": 0})
	f := New(fb)

	for _, strategy := range []types.Strategy{types.StrategyOneEach, types.StrategyEqualDistribution} {
		p := oneEach(2)
		p.Policy = types.CapitalPolicy{Capital: 50000, Strategy: strategy}

		res, err := f.Finalize(context.Background(), []types.Selection{
			sel("ZERO", 5, types.ActionBuy),
			sel("INFY", 5, types.ActionBuy),
			sel("MISSING", 5, types.ActionSell),
		}, p)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(res.Orders) != 1 || res.Orders[0].Row.Symbol != "INFY" {
			t.Fatalf("Expected only INFY to survive, got %+v", res.Orders)
		}
		if len(res.Skipped) != 2 {
			t.Errorf("Expected 2 skipped rows, got %v", res.Skipped)
		}
		for _, s := range res.Skipped {
			if s.Reason != ReasonQuoteUnavailable {
				t.Errorf("Expected reason %q, got %q", ReasonQuoteUnavailable, s.Reason)
			}
		}
		if strategy == types.StrategyEqualDistribution && res.Orders[0].Quantity != 500 {
			t.Errorf("Expected the whole budget to go to INFY (500), got %d", res.Orders[0].Quantity)
		}
	}
}

func TestFinalizeNothingFinalizable(t *testing.T) {
	f := New(newFakeBroker(map[string]float64{"ZERO": 0}))
	res, err := f.Finalize(context.Background(), []types.Selection{sel("ZERO", 5, types.ActionBuy)}, oneEach(1))
	if !errors.Is(err, ErrNothingFinalizable) {
		t.Fatalf("Expected ErrNothingFinalizable, got %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Errorf("Expected skip report alongside the error, got %v", res.Skipped)
	}
}

func TestFinalizeIgnoresSkipSelections(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"INFY": 100, "TCS": 3500})
	res, err := New(fb).Finalize(context.Background(), []types.Selection{
		sel("INFY", 5, types.ActionSkip),
		sel("TCS", 5, types.ActionSell),
	}, oneEach(1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 || res.Orders[0].Row.Symbol != "TCS" {
		t.Errorf("Expected only TCS, got %+v", res.Orders)
	}
	if fb.calls["INFY"] != 0 {
		t.Error("Expected no quote lookup for a skipped row")
	}
}

func TestFinalizeOneLookupPerSymbol(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"INFY": 100})
	_, err := New(fb).Finalize(context.Background(), []types.Selection{
		sel("INFY", 5, types.ActionBuy),
		sel("INFY", 3, types.ActionSell),
	}, oneEach(1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fb.calls["INFY"] != 1 {
		t.Errorf("Expected 1 quote lookup, got %d", fb.calls["INFY"])
	}
}

func TestFinalizeMetricSelection(t *testing.T) {
	atr := 4.0
	fb := newFakeBroker(map[string]float64{"INFY": 100, "TCS": 200})
	p := oneEach(1)
	p.Metric = types.MetricATR

	res, err := New(fb).Finalize(context.Background(), []types.Selection{
		{Row: types.ScannerRow{Symbol: "INFY", TrueRange: 5, ATR14: &atr}, Action: types.ActionBoth},
		{Row: types.ScannerRow{Symbol: "TCS", TrueRange: 5}, Action: types.ActionBoth},
	}, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 || res.Orders[0].BuyPrice != 96 || res.Orders[0].SellPrice != 104 {
		t.Errorf("Expected INFY bracket 96/104 from ATR, got %+v", res.Orders)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != ReasonMetricUnavailable {
		t.Errorf("Expected TCS skipped for missing ATR, got %v", res.Skipped)
	}
	if fb.calls["TCS"] != 0 {
		t.Error("Expected no quote lookup when the metric is missing")
	}
}

func TestFinalizeNonPositiveBuyPrice(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"PENNY": 3})
	res, err := New(fb).Finalize(context.Background(), []types.Selection{
		sel("PENNY", 4, types.ActionBuy),
		sel("PENNY", 4, types.ActionSell),
	}, oneEach(1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 || res.Orders[0].Action != types.ActionSell {
		t.Errorf("Expected only the sell to survive, got %+v", res.Orders)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != ReasonNonPositivePrice {
		t.Errorf("Expected non-positive price skip, got %v", res.Skipped)
	}
}

func TestFinalizeBothKeepsSellLeg(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"PENNY": 3})
	res, err := New(fb).Finalize(context.Background(), []types.Selection{
		sel("PENNY", 4, types.ActionBoth),
	}, oneEach(1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 {
		t.Fatalf("Expected the row to survive, got %+v", res.Orders)
	}
	o := res.Orders[0]
	if o.Action != types.ActionSell || o.SellPrice != 7 {
		t.Errorf("Expected a SELL at 7, got %s at %v", o.Action, o.SellPrice)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != ReasonBuyLegDropped {
		t.Errorf("Expected a dropped buy leg notice, got %v", res.Skipped)
	}
}

func TestFinalizeZeroMetricIsUnavailable(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"FLAT": 100, "INFY": 100})
	res, err := New(fb).Finalize(context.Background(), []types.Selection{
		sel("FLAT", 0, types.ActionBoth),
		sel("INFY", 5, types.ActionBoth),
	}, oneEach(1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Orders) != 1 || res.Orders[0].Row.Symbol != "INFY" {
		t.Errorf("Expected only INFY finalized, got %+v", res.Orders)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Symbol != "FLAT" || res.Skipped[0].Reason != ReasonMetricUnavailable {
		t.Errorf("Expected FLAT skipped as metric unavailable, got %v", res.Skipped)
	}
	if fb.calls["FLAT"] != 0 {
		t.Errorf("Expected no quote lookup for FLAT, got %d", fb.calls["FLAT"])
	}
}

func TestFinalizePricesAreTenths(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"A": 101.456, "B": 99.99, "C": 1234.55, "D": 17.03})
	for _, mult := range []float64{0.3, 1, 1.37, 2.5} {
		res, err := New(fb).Finalize(context.Background(), []types.Selection{
			sel("A", 1.111, types.ActionBoth),
			sel("B", 0.07, types.ActionBoth),
			sel("C", 12.345, types.ActionBoth),
			sel("D", 0.33, types.ActionBoth),
		}, oneEach(mult))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		for _, o := range res.Orders {
			if !isTenth(o.BuyPrice) || !isTenth(o.SellPrice) {
				t.Errorf("Expected multiples of 0.1 for %s at multiplier %v, got %v / %v", o.Row.Symbol, mult, o.BuyPrice, o.SellPrice)
			}
		}
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	fb := newFakeBroker(map[string]float64{"INFY": 1501.35, "TCS": 3420.8})
	sels := []types.Selection{sel("INFY", 22.4, types.ActionBoth), sel("TCS", 41.9, types.ActionBuy)}
	p := Params{
		Metric:     types.MetricTrueRange,
		Multiplier: 1.5,
		Policy:     types.CapitalPolicy{Capital: 200000, Strategy: types.StrategyEqualDistribution},
	}

	first, err := New(fb).Finalize(context.Background(), sels, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := New(fb).Finalize(context.Background(), sels, p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
}

func TestRoundPrice(t *testing.T) {
	cases := map[float64]float64{
		101.456: 101.5,
		101.45:  101.5,
		101.44:  101.4,
		92.5:    92.5,
		-0.05:   -0.1,
	}
	for in, want := range cases {
		if got := RoundPrice(in); got != want {
			t.Errorf("RoundPrice(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	if err := (Params{Policy: types.CapitalPolicy{Strategy: types.StrategyEqualDistribution}}).Validate(); err == nil {
		t.Error("Expected error for EQUAL_DISTRIBUTION without capital")
	}
	if err := (Params{Multiplier: -1, Policy: types.CapitalPolicy{Strategy: types.StrategyOneEach}}).Validate(); err == nil {
		t.Error("Expected error for negative multiplier")
	}
	if err := (Params{Policy: types.CapitalPolicy{Strategy: "HALF"}}).Validate(); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}
