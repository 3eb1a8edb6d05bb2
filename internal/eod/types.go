package eod

// aggRow is the per-symbol rollup of one day's placement attempts.
// Only PLACED attempts count towards orders, quantity and value.
type aggRow struct {
	Symbol     string
	BuyOrders  int
	BuyQty     int
	BuyValue   float64 // sum of qty * limit price
	SellOrders int
	SellQty    int
	SellValue  float64
	Failed     int // FAILED attempts on either side
}

func (r *aggRow) buyAvg() float64 {
	if r.BuyQty == 0 {
		return 0
	}
	return r.BuyValue / float64(r.BuyQty)
}

func (r *aggRow) sellAvg() float64 {
	if r.SellQty == 0 {
		return 0
	}
	return r.SellValue / float64(r.SellQty)
}
