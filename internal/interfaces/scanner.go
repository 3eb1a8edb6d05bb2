package interfaces

import (
	"context"
	"time"

	"scanner-approval/internal/types"
)

// ScannerSource reads the day's scanner results from the hosted table.
type ScannerSource interface {
	Query(ctx context.Context, date time.Time) ([]types.ScannerRow, error)
}
