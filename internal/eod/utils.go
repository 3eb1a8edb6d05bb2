package eod

import (
	"path/filepath"
	"time"

	"scanner-approval/internal/tradelog"
)

var ist = time.FixedZone("IST", 19800)

func istNow() time.Time {
	return time.Now().In(ist)
}

func eodCSVPath(t time.Time) string {
	dateStr := t.In(ist).Format("2006-01-02")
	return filepath.Join(tradelog.Dir(), "eod", dateStr+".csv")
}

// marketCloseTime is the cutoff after which the day's summary is due.
func marketCloseTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 15, 40, 0, 0, t.Location())
}
