package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
	"scanner-approval/internal/workflow"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	buyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Padding(0, 1)
	sellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Padding(0, 1)
)

const rationaleWidth = 48

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

// plainStyle is the StyleFunc for tables without per-cell highlighting.
func plainStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerCellStyle
	}
	return cellStyle
}

// RenderTitle renders a phase banner.
func RenderTitle(text string) string {
	return bannerStyle.Render(titleStyle.Render(text))
}

// RenderSession describes the authenticated operator.
func RenderSession(s *types.Session) string {
	if s == nil {
		return warnStyle.Render("Not logged in")
	}
	name := s.UserName()
	if name == "" {
		name = "unknown user"
	}
	line := infoStyle.Render("Logged in as " + name)
	if s.Timestamp != "" {
		line += mutedStyle.Render(" (session from " + s.Timestamp + ")")
	}
	return line
}

// RenderRows renders the scanner rows with the operator's current choices.
func RenderRows(rows []types.ScannerRow, choices []types.Action) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No scanner rows loaded.")
	}
	t := newTable("#", "Symbol", "Action", "True Range", "ATR(14)", "Rationale")
	for i, r := range rows {
		action := types.ActionSkip
		if i < len(choices) {
			action = choices[i]
		}
		t.Row(
			strconv.Itoa(i+1),
			r.Symbol,
			action.String(),
			formatNumber(r.TrueRange),
			formatOptional(r.ATR14),
			truncate(r.Rationale, rationaleWidth),
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCellStyle
		}
		if col == 2 && row >= 0 && row < len(choices) {
			return actionStyle(choices[row])
		}
		return cellStyle
	})
	return t.String()
}

// RenderReview renders the finalized batch and anything the finalizer dropped.
func RenderReview(orders []types.FinalizedOrder, skipped []finalizer.Skip, p finalizer.Params) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf("metric %s x %.2f, %s", p.Metric, p.Multiplier, policyLabel(p.Policy))))
	b.WriteString("\n")

	t := newTable("#", "Symbol", "Action", "Open", "Delta", "Buy", "Sell", "Qty")
	for i, o := range orders {
		t.Row(
			strconv.Itoa(i+1),
			o.Row.Symbol,
			o.Action.String(),
			formatPrice(o.OpenPrice),
			formatNumber(o.Delta),
			legPrice(o, types.SideBuy),
			legPrice(o, types.SideSell),
			strconv.Itoa(o.Quantity),
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerCellStyle
		case col == 5:
			return buyStyle
		case col == 6:
			return sellStyle
		}
		return cellStyle
	})
	b.WriteString(t.String())

	if len(skipped) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d selected rows skipped:", len(skipped))))
		for _, s := range skipped {
			b.WriteString("\n  ")
			b.WriteString(s.String())
		}
	}
	return b.String()
}

// RenderReport renders the outcome of every placement in a batch.
func RenderReport(rep *workflow.Report) string {
	if rep == nil {
		return ""
	}
	t := newTable("Symbol", "Side", "Qty", "Price", "Result")
	for _, p := range rep.Placements {
		result := "order " + p.OrderID
		if !p.OK() {
			result = "failed: " + p.Err.Error()
		}
		t.Row(p.Symbol, string(p.Side), strconv.Itoa(p.Qty), formatPrice(p.Price), result)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCellStyle
		}
		if col == 4 && row >= 0 && row < len(rep.Placements) && !rep.Placements[row].OK() {
			return errorStyle.Padding(0, 1)
		}
		return cellStyle
	})

	line := fmt.Sprintf("Batch %s: %d placed, %d failed", rep.BatchID, rep.Succeeded, rep.Failed)
	style := infoStyle
	if rep.Failed > 0 {
		style = warnStyle
	}
	return t.String() + "\n" + style.Render(line)
}

// RenderOrderBook renders the broker's order book with last traded prices.
// Symbols missing from ltp show a dash.
func RenderOrderBook(orders []types.OrderRecord, ltp map[string]float64) string {
	if len(orders) == 0 {
		return mutedStyle.Render("No orders today.")
	}
	sorted := append([]types.OrderRecord(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	t := newTable("Time", "Order ID", "Symbol", "Side", "Qty", "Filled", "Price", "LTP", "Status")
	for _, o := range sorted {
		last := "-"
		if v, ok := ltp[o.Symbol]; ok {
			last = formatPrice(v)
		}
		when := ""
		if !o.Timestamp.IsZero() {
			when = o.Timestamp.Format("15:04:05")
		}
		status := o.Status
		if o.StatusReason != "" {
			status += " (" + truncate(o.StatusReason, 32) + ")"
		}
		t.Row(when, o.OrderID, o.Symbol, o.Side, strconv.Itoa(o.Qty), strconv.Itoa(o.FilledQty), formatPrice(o.Price), last, status)
	}
	t.StyleFunc(plainStyle)
	return t.String()
}

// RenderNotices renders the messages produced by the last workflow action.
func RenderNotices(ns []workflow.Notice) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		switch n.Level {
		case workflow.LevelError:
			lines = append(lines, errorStyle.Render("✗ "+n.Text))
		case workflow.LevelWarn:
			lines = append(lines, warnStyle.Render("! "+n.Text))
		default:
			lines = append(lines, infoStyle.Render("✓ "+n.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func actionStyle(a types.Action) lipgloss.Style {
	switch a {
	case types.ActionBuy:
		return buyStyle
	case types.ActionSell:
		return sellStyle
	case types.ActionBoth:
		return warnStyle.Padding(0, 1)
	default:
		return mutedStyle.Padding(0, 1)
	}
}

// legPrice shows the limit price only for the sides the order will place.
func legPrice(o types.FinalizedOrder, side types.Side) string {
	for _, s := range o.Action.Sides() {
		if s == side {
			return formatPrice(o.Price(side))
		}
	}
	return "-"
}

func policyLabel(p types.CapitalPolicy) string {
	if p.Strategy == types.StrategyEqualDistribution {
		return fmt.Sprintf("%s of %.2f", p.Strategy, p.Capital)
	}
	return string(p.Strategy)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatNumber(*v)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
