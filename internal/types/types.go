package types

import (
	"strings"
	"time"
)

// ScannerRow is one candidate symbol flagged by the scanner for a trading day.
type ScannerRow struct {
	Date      string   `json:"date,omitempty"`
	Symbol    string   `json:"symbol"`
	Rationale string   `json:"rationale"`
	TrueRange float64  `json:"true_range"`
	ATR14     *float64 `json:"atr_14,omitempty"`
}

// Metric selects which volatility column sizes the price offset.
type Metric string

const (
	MetricTrueRange Metric = "TRUE_RANGE"
	MetricATR       Metric = "ATR"
)

// Value returns the row's volatility value for m. ok is false when the
// column is absent or not positive.
func (r ScannerRow) Value(m Metric) (v float64, ok bool) {
	if m == MetricATR {
		if r.ATR14 == nil {
			return 0, false
		}
		v = *r.ATR14
	} else {
		v = r.TrueRange
	}
	return v, v > 0
}

// Action is the operator's decision for a scanner row.
type Action int

const (
	ActionSkip Action = iota
	ActionBuy
	ActionSell
	ActionBoth
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	case ActionBoth:
		return "BOTH"
	default:
		return "SKIP"
	}
}

// ParseAction maps operator input to an Action. Unknown input is SKIP.
func ParseAction(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return ActionBuy
	case "SELL":
		return ActionSell
	case "BOTH":
		return ActionBoth
	default:
		return ActionSkip
	}
}

// Sides returns the order sides an action places, buy first.
func (a Action) Sides() []Side {
	switch a {
	case ActionBuy:
		return []Side{SideBuy}
	case ActionSell:
		return []Side{SideSell}
	case ActionBoth:
		return []Side{SideBuy, SideSell}
	default:
		return nil
	}
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Strategy controls how quantities are sized from capital.
type Strategy string

const (
	StrategyOneEach           Strategy = "ONE_EACH"
	StrategyEqualDistribution Strategy = "EQUAL_DISTRIBUTION"
)

type CapitalPolicy struct {
	Capital  float64
	Strategy Strategy
}

// Selection is a scanner row with the operator's chosen action.
type Selection struct {
	Row    ScannerRow
	Action Action
}

// FinalizedOrder is a ScannerRow enriched with execution parameters.
type FinalizedOrder struct {
	Row       ScannerRow
	Action    Action
	Delta     float64
	OpenPrice float64
	BuyPrice  float64
	SellPrice float64
	Quantity  int
}

// Price returns the limit price for side.
func (o FinalizedOrder) Price(side Side) float64 {
	if side == SideSell {
		return o.SellPrice
	}
	return o.BuyPrice
}

// Quote is a single-instrument snapshot. Err is set when the lookup failed,
// which keeps "price is zero" distinct from "fetch failed".
type Quote struct {
	Symbol string
	Last   float64
	Open   float64
	Err    error
}

// Available reports whether the quote carries a usable open price.
func (q Quote) Available() bool {
	return q.Err == nil && q.Open > 0
}

// LimitOrder is a day-validity intraday limit order request.
type LimitOrder struct {
	Symbol string
	Side   Side
	Price  float64
	Qty    int
	Tag    string
}

// OrderRecord is one row of the broker's order book.
type OrderRecord struct {
	OrderID      string    `json:"order_id"`
	Timestamp    time.Time `json:"order_timestamp"`
	Symbol       string    `json:"tradingsymbol"`
	Exchange     string    `json:"exchange"`
	Side         string    `json:"transaction_type"`
	Status       string    `json:"status"`
	Variety      string    `json:"variety"`
	FilledQty    int       `json:"filled_quantity"`
	Qty          int       `json:"quantity"`
	Price        float64   `json:"price"`
	StatusReason string    `json:"status_message,omitempty"`
}

var cancellableStatuses = map[string]bool{
	"OPEN":             true,
	"TRIGGER_PENDING":  true,
	"AMO_REQUESTED":    true,
	"AMO_REQ_RECEIVED": true,
}

// Cancellable reports whether the order is still working at the exchange.
// Broker statuses use spaces ("TRIGGER PENDING"), so they are normalized first.
func (o OrderRecord) Cancellable() bool {
	s := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(o.Status)), " ", "_")
	return cancellableStatuses[s]
}

// Session is the authenticated operator context.
type Session struct {
	APIKey      string         `json:"api_key"`
	AccessToken string         `json:"access_token"`
	Profile     map[string]any `json:"user_data"`
	Timestamp   string         `json:"timestamp"`
}

// UserName returns the display name from the profile snapshot.
func (s Session) UserName() string {
	if v, ok := s.Profile["user_name"].(string); ok && v != "" {
		return v
	}
	if v, ok := s.Profile["user_id"].(string); ok {
		return v
	}
	return ""
}
