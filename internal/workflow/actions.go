package workflow

import (
	"time"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
)

// Action is an operator command. Each variant is handled by exactly one
// transition in Controller.Dispatch.
type Action interface {
	name() string
}

// Fetch loads the scanner rows for Date.
type Fetch struct{ Date time.Time }

// Choose sets the action for every row with Symbol.
type Choose struct {
	Symbol string
	Action types.Action
}

// Proceed finalizes the non-skipped rows.
type Proceed struct{ Params finalizer.Params }

// Back discards the finalized batch and returns to selection.
type Back struct{}

// Edit overrides fields of the finalized order at Index. Nil fields are kept.
type Edit struct {
	Index     int
	BuyPrice  *float64
	SellPrice *float64
	Qty       *int
}

// Confirm submits the finalized batch.
type Confirm struct{}

// Reset clears everything and waits for a new fetch.
type Reset struct{}

func (Fetch) name() string   { return "fetch" }
func (Choose) name() string  { return "choose" }
func (Proceed) name() string { return "proceed" }
func (Back) name() string    { return "back" }
func (Edit) name() string    { return "edit" }
func (Confirm) name() string { return "confirm" }
func (Reset) name() string   { return "reset" }

// Name returns a short label for a, used in logs.
func Name(a Action) string { return a.name() }
