package zerodha

import (
	"context"
	"errors"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/types"
)

// ErrMissingCredentials is returned when no access token has been set.
var ErrMissingCredentials = errors.New("missing API key/access token")

type Params struct {
	Mode        string
	APIKey      string
	AccessToken string
	Exchange    string
	// BaseURI overrides the Kite REST root, empty means the production API.
	BaseURI string
}

// Zerodha implements interfaces.Broker over the Kite Connect REST API.
type Zerodha struct {
	p  Params
	kc *kiteconnect.Client
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	return &Zerodha{p: p, kc: newClient(p.APIKey, p.AccessToken, p.BaseURI)}
}

func newClient(apiKey, accessToken, baseURI string) *kiteconnect.Client {
	kc := kiteconnect.New(apiKey)
	if accessToken != "" {
		kc.SetAccessToken(accessToken)
	}
	if baseURI != "" {
		kc.SetBaseURI(baseURI)
	}
	return kc
}

func (z *Zerodha) instrument(symbol string) string {
	return z.p.Exchange + ":" + symbol
}

func (z *Zerodha) OpenAndLastPrice(ctx context.Context, symbol string) types.Quote {
	q := types.Quote{Symbol: symbol}
	inst := z.instrument(symbol)

	quotes, err := z.kc.GetQuote(inst)
	if err != nil {
		q.Err = fmt.Errorf("quote %s: %w", inst, err)
		return q
	}
	data, ok := quotes[inst]
	if !ok {
		q.Err = fmt.Errorf("quote %s: instrument missing from response", inst)
		return q
	}
	q.Last = data.LastPrice
	q.Open = data.OHLC.Open
	if q.Open <= 0 {
		q.Err = fmt.Errorf("quote %s: open price unavailable", inst)
	}
	return q
}

func (z *Zerodha) LastPrices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	insts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		insts = append(insts, z.instrument(s))
	}

	ltp, err := z.kc.GetLTP(insts...)
	if err != nil {
		return out
	}
	for i, inst := range insts {
		if v, ok := ltp[inst]; ok {
			out[symbols[i]] = v.LastPrice
		}
	}
	return out
}

func (z *Zerodha) PlaceLimitOrder(ctx context.Context, req types.LimitOrder) (string, error) {
	if req.Qty < 1 {
		return "", fmt.Errorf("invalid quantity %d for %s", req.Qty, req.Symbol)
	}
	if req.Price <= 0 {
		return "", fmt.Errorf("invalid limit price %.2f for %s", req.Price, req.Symbol)
	}

	if z.p.Mode == "DRY_RUN" {
		return fmt.Sprintf("SIM-%d", time.Now().UnixNano()), nil
	}

	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return "", ErrMissingCredentials
	}

	txn := kiteconnect.TransactionTypeBuy
	if req.Side == types.SideSell {
		txn = kiteconnect.TransactionTypeSell
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   req.Symbol,
		TransactionType: txn,
		Quantity:        req.Qty,
		Product:         kiteconnect.ProductMIS,
		OrderType:       kiteconnect.OrderTypeLimit,
		Price:           req.Price,
		Validity:        kiteconnect.ValidityDay,
		Tag:             req.Tag,
	})
	if err != nil {
		return "", fmt.Errorf("place %s %s: %w", req.Side, req.Symbol, err)
	}
	return resp.OrderID, nil
}

func (z *Zerodha) ListOrders(ctx context.Context) ([]types.OrderRecord, error) {
	orders, err := z.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	out := make([]types.OrderRecord, 0, len(orders))
	for _, o := range orders {
		out = append(out, types.OrderRecord{
			OrderID:      o.OrderID,
			Timestamp:    o.OrderTimestamp.Time,
			Symbol:       o.TradingSymbol,
			Exchange:     o.Exchange,
			Side:         o.TransactionType,
			Status:       o.Status,
			Variety:      o.Variety,
			FilledQty:    int(o.FilledQuantity),
			Qty:          int(o.Quantity),
			Price:        o.Price,
			StatusReason: o.StatusMessage,
		})
	}
	return out, nil
}

func (z *Zerodha) CancelOrder(ctx context.Context, order types.OrderRecord) error {
	if !order.Cancellable() {
		return fmt.Errorf("order %s is %s and cannot be cancelled", order.OrderID, order.Status)
	}
	if z.p.Mode == "DRY_RUN" {
		return nil
	}

	variety := order.Variety
	if variety == "" {
		variety = kiteconnect.VarietyRegular
	}
	if _, err := z.kc.CancelOrder(variety, order.OrderID, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", order.OrderID, err)
	}
	return nil
}
