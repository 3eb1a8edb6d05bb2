package workflow

import (
	"time"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
)

type Phase int

const (
	PhaseFetching Phase = iota
	PhaseSelecting
	PhaseReviewing
	PhaseSubmitting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "FETCHING"
	case PhaseSelecting:
		return "SELECTING"
	case PhaseReviewing:
		return "REVIEWING"
	case PhaseSubmitting:
		return "SUBMITTING"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is an operator-facing message produced by the last action.
type Notice struct {
	Level Level
	Text  string
}

// Placement is the outcome of one placeLimitOrder attempt.
type Placement struct {
	Symbol  string
	Side    types.Side
	Price   float64
	Qty     int
	OrderID string
	Err     error
}

func (p Placement) OK() bool { return p.Err == nil }

// Report summarizes a submitted batch, counted per symbol and side.
type Report struct {
	BatchID    string
	Placements []Placement
	Succeeded  int
	Failed     int
}

// State is the full workflow context. Rows and Choices are parallel.
type State struct {
	Phase   Phase
	Date    time.Time
	Rows    []types.ScannerRow
	Choices []types.Action

	Params  finalizer.Params
	Orders  []types.FinalizedOrder
	Skipped []finalizer.Skip

	// Report is the last submitted batch. It survives the reset after DONE.
	Report  *Report
	Notices []Notice
}

// Selections returns the rows the operator did not skip.
func (s State) Selections() []types.Selection {
	var out []types.Selection
	for i, r := range s.Rows {
		if s.Choices[i] != types.ActionSkip {
			out = append(out, types.Selection{Row: r, Action: s.Choices[i]})
		}
	}
	return out
}

// HasErrors reports whether the last action produced an error notice.
func (s State) HasErrors() bool {
	for _, n := range s.Notices {
		if n.Level == LevelError {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	c := s
	c.Rows = append([]types.ScannerRow(nil), s.Rows...)
	c.Choices = append([]types.Action(nil), s.Choices...)
	c.Orders = append([]types.FinalizedOrder(nil), s.Orders...)
	c.Skipped = append([]finalizer.Skip(nil), s.Skipped...)
	c.Notices = append([]Notice(nil), s.Notices...)
	return c
}
