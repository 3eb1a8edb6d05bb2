package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/tradelog"
)

type eodSummarizer struct {
	now func() time.Time
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

var headers = []string{
	"symbol",
	"buy_orders", "buy_qty", "buy_avg", "buy_value",
	"sell_orders", "sell_qty", "sell_avg", "sell_value",
	"failed",
}

// SummarizeDay writes the CSV rollup of t's placement log and returns its
// path. An empty path with a nil error means nothing was logged that day.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := tradelog.ReadDay(t)
	if err != nil {
		return "", err
	}

	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		if e.Status == tradelog.StatusFailed {
			row.Failed++
			continue
		}
		switch e.Side {
		case "BUY":
			row.BuyOrders++
			row.BuyQty += e.Qty
			row.BuyValue += float64(e.Qty) * e.Price
		case "SELL":
			row.SellOrders++
			row.SellQty += e.Qty
			row.SellValue += float64(e.Qty) * e.Price
		}
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	total := aggRow{Symbol: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(record(r)); err != nil {
			return "", err
		}
		total.BuyOrders += r.BuyOrders
		total.BuyQty += r.BuyQty
		total.BuyValue += r.BuyValue
		total.SellOrders += r.SellOrders
		total.SellQty += r.SellQty
		total.SellValue += r.SellValue
		total.Failed += r.Failed
	}
	if err := w.Write(record(&total)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func record(r *aggRow) []string {
	return []string{
		r.Symbol,
		strconv.Itoa(r.BuyOrders), strconv.Itoa(r.BuyQty), fmt.Sprintf("%.4f", r.buyAvg()), fmt.Sprintf("%.2f", r.BuyValue),
		strconv.Itoa(r.SellOrders), strconv.Itoa(r.SellQty), fmt.Sprintf("%.4f", r.sellAvg()), fmt.Sprintf("%.2f", r.SellValue),
		strconv.Itoa(r.Failed),
	}
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// ShouldRunNow is true after market close when today's CSV does not exist yet.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now()
	outPath := eodCSVPath(now)
	if now.After(marketCloseTime(now)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
