package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
	"scanner-approval/internal/workflow"
)

func contains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("Expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestRenderRows(t *testing.T) {
	atr := 4.25
	rows := []types.ScannerRow{
		{Symbol: "INFY", TrueRange: 5, ATR14: &atr, Rationale: "breakout above prior high"},
		{Symbol: "TCS", TrueRange: 12.5},
	}
	out := RenderRows(rows, []types.Action{types.ActionBoth, types.ActionSkip})
	contains(t, out, "Symbol", "INFY", "TCS", "BOTH", "SKIP", "4.25", "12.5", "breakout above prior high")
}

func TestRenderRowsEmpty(t *testing.T) {
	contains(t, RenderRows(nil, nil), "No scanner rows loaded.")
}

func TestRenderReview(t *testing.T) {
	orders := []types.FinalizedOrder{
		{Row: types.ScannerRow{Symbol: "INFY"}, Action: types.ActionBuy, Delta: 7.5, OpenPrice: 100, BuyPrice: 92.5, SellPrice: 107.5, Quantity: 3},
	}
	skipped := []finalizer.Skip{{Symbol: "TCS", Reason: finalizer.ReasonQuoteUnavailable}}
	params := finalizer.Params{
		Metric:     types.MetricTrueRange,
		Multiplier: 1.5,
		Policy:     types.CapitalPolicy{Strategy: types.StrategyEqualDistribution, Capital: 1000},
	}

	out := RenderReview(orders, skipped, params)
	contains(t, out, "INFY", "100.00", "92.50", "7.5", "3", "TCS", "quote unavailable", "EQUAL_DISTRIBUTION of 1000.00")
	if strings.Contains(out, "107.50") {
		t.Errorf("Expected no sell price for a BUY order, got:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	rep := &workflow.Report{
		BatchID: "batch-1",
		Placements: []workflow.Placement{
			{Symbol: "INFY", Side: types.SideBuy, Price: 92.5, Qty: 1, OrderID: "230101000001"},
			{Symbol: "INFY", Side: types.SideSell, Price: 107.5, Qty: 1, Err: errors.New("insufficient margin")},
		},
		Succeeded: 1,
		Failed:    1,
	}
	out := RenderReport(rep)
	contains(t, out, "order 230101000001", "failed: insufficient margin", "Batch batch-1: 1 placed, 1 failed")

	if RenderReport(nil) != "" {
		t.Error("Expected empty output for a nil report")
	}
}

func TestRenderOrderBook(t *testing.T) {
	orders := []types.OrderRecord{
		{OrderID: "1", Symbol: "INFY", Side: "BUY", Status: "OPEN", Qty: 2, Price: 92.5, Timestamp: time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)},
		{OrderID: "2", Symbol: "TCS", Side: "SELL", Status: "REJECTED", StatusReason: "price out of range", Qty: 1, Price: 3500},
	}
	out := RenderOrderBook(orders, map[string]float64{"INFY": 95.35})
	contains(t, out, "LTP", "95.35", "09:15:00", "REJECTED (price out of range)", "3500.00")

	tcsLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "TCS") {
			tcsLine = line
		}
	}
	if !strings.Contains(tcsLine, "-") {
		t.Errorf("Expected a dash for the missing LTP, got %q", tcsLine)
	}

	contains(t, RenderOrderBook(nil, nil), "No orders today.")
}

func TestRenderNotices(t *testing.T) {
	out := RenderNotices([]workflow.Notice{
		{Level: workflow.LevelInfo, Text: "3 rows loaded"},
		{Level: workflow.LevelWarn, Text: "skipped TCS"},
		{Level: workflow.LevelError, Text: "no symbols selected"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), out)
	}
	contains(t, lines[0], "✓ 3 rows loaded")
	contains(t, lines[1], "! skipped TCS")
	contains(t, lines[2], "✗ no symbols selected")
}

func TestRenderSession(t *testing.T) {
	contains(t, RenderSession(nil), "Not logged in")
	s := &types.Session{Profile: map[string]any{"user_name": "Asha"}, Timestamp: "2024-01-02T09:00:00+05:30"}
	contains(t, RenderSession(s), "Logged in as Asha", "2024-01-02T09:00:00+05:30")
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected short, got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("Expected abcd…, got %q", got)
	}
}

func TestTransitionPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer := TransitionPrinter(&buf)

	orders := []types.FinalizedOrder{
		{Row: types.ScannerRow{Symbol: "INFY"}, Action: types.ActionBoth},
		{Row: types.ScannerRow{Symbol: "TCS"}, Action: types.ActionSell},
	}
	printer(workflow.PhaseReviewing, workflow.PhaseSubmitting, workflow.State{Phase: workflow.PhaseSubmitting, Orders: orders})
	contains(t, buf.String(), "Submitting 3 placements")

	buf.Reset()
	rep := &workflow.Report{BatchID: "b-7", Succeeded: 3}
	printer(workflow.PhaseSubmitting, workflow.PhaseDone, workflow.State{Phase: workflow.PhaseDone, Report: rep})
	contains(t, buf.String(), "Batch complete", "Batch b-7: 3 placed, 0 failed")

	buf.Reset()
	printer(workflow.PhaseFetching, workflow.PhaseSelecting, workflow.State{})
	if buf.Len() != 0 {
		t.Errorf("Expected no output for other phases, got %q", buf.String())
	}
}
