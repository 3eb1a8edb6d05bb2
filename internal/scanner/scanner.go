package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/trace"
	"scanner-approval/internal/types"
)

// ErrNotConfigured is returned when the store URL or key is empty.
var ErrNotConfigured = errors.New("scanner store URL/key not configured")

const selectColumns = "rationale,symbol,atr_14,true_range"

// Client queries the hosted scanner_results table over PostgREST.
type Client struct {
	client *resty.Client
	table  string
	ready  bool
}

var _ interfaces.ScannerSource = (*Client)(nil)

// row mirrors the table's columns; nullable metrics decode to nil.
type row struct {
	Symbol    string   `json:"symbol"`
	Rationale string   `json:"rationale"`
	TrueRange *float64 `json:"true_range"`
	ATR14     *float64 `json:"atr_14"`
}

// NewClient creates a client for the store at baseURL.
func NewClient(baseURL, apiKey, table string) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(30 * time.Second)
	client.SetHeader("apikey", apiKey)
	client.SetAuthToken(apiKey)
	client.SetHeader("Accept", "application/json")

	if table == "" {
		table = "scanner_results"
	}
	return &Client{
		client: client,
		table:  table,
		ready:  baseURL != "" && apiKey != "",
	}
}

// Query returns the rows flagged for date. No pagination is applied.
func (c *Client) Query(ctx context.Context, date time.Time) ([]types.ScannerRow, error) {
	if !c.ready {
		return nil, ErrNotConfigured
	}

	dateStr := date.Format("2006-01-02")
	ctx, span := trace.StartSpan(ctx, "scanner.Query")
	defer span.End()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": selectColumns,
			"date":   "eq." + dateStr,
		}).
		Get("/rest/v1/" + c.table)
	if err != nil {
		return nil, fmt.Errorf("scanner query for %s: %w", dateStr, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("scanner query for %s: API error %d: %s", dateStr, resp.StatusCode(), resp.String())
	}

	var raw []row
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scanner response: %w", err)
	}

	// Symbols are unique per day so an operator choice maps to exactly one row.
	rows := make([]types.ScannerRow, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			logger.Warn(ctx, "Scanner row without symbol ignored", "date", dateStr)
			continue
		}
		if seen[symbol] {
			logger.Warn(ctx, "Duplicate scanner row ignored", "date", dateStr, "symbol", symbol)
			continue
		}
		seen[symbol] = true
		sr := types.ScannerRow{
			Date:      dateStr,
			Symbol:    symbol,
			Rationale: r.Rationale,
			ATR14:     r.ATR14,
		}
		if r.TrueRange != nil {
			sr.TrueRange = *r.TrueRange
		}
		rows = append(rows, sr)
	}

	logger.Debug(ctx, "Scanner rows fetched", "date", dateStr, "count", len(rows))
	return rows, nil
}
