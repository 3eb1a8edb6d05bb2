package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/types"
)

// Machine is the approval workflow driven one operator action at a time.
type Machine interface {
	Dispatch(ctx context.Context, a Action) State
	State() State
}

// Observer is notified after every phase change, including the transient
// SUBMITTING and DONE phases of a confirmed batch.
type Observer func(from, to Phase, s State)

// Controller owns the workflow state. It is not safe for concurrent use.
type Controller struct {
	scanner   interfaces.ScannerSource
	finalizer *finalizer.Finalizer
	submitter *orderSubmitter
	observer  Observer
	state     State
}

var _ Machine = (*Controller)(nil)

func New(scanner interfaces.ScannerSource, broker interfaces.Broker) *Controller {
	return &Controller{
		scanner:   scanner,
		finalizer: finalizer.New(broker),
		submitter: newOrderSubmitter(broker),
		state:     State{Phase: PhaseFetching},
	}
}

// OnTransition registers fn as the phase change observer.
func (c *Controller) OnTransition(fn Observer) {
	c.observer = fn
}

func (c *Controller) State() State {
	return c.state.clone()
}

// Dispatch applies a to the current state and returns the result.
// Remote failures are reported as notices, never returned.
func (c *Controller) Dispatch(ctx context.Context, a Action) State {
	c.state.Notices = nil
	from := c.state.Phase

	var next State
	switch a := a.(type) {
	case Fetch:
		next = c.fetch(ctx, a)
	case Choose:
		next = c.choose(a)
	case Proceed:
		next = c.proceed(ctx, a)
	case Back:
		next = c.back()
	case Edit:
		next = c.edit(a)
	case Confirm:
		next = c.confirm(ctx)
	case Reset:
		next = c.reset()
	default:
		next = c.reject(a)
	}

	// confirm moves through SUBMITTING and DONE before returning.
	prev := c.state.Phase
	c.state = next
	if prev != next.Phase {
		c.notify(prev, next.Phase)
	}
	logger.Debug(ctx, "Workflow action handled",
		"action", Name(a),
		"from", from.String(),
		"to", next.Phase.String(),
		"notices", len(next.Notices),
	)
	return c.state.clone()
}

func (c *Controller) notify(from, to Phase) {
	if c.observer != nil {
		c.observer(from, to, c.state.clone())
	}
}

func (c *Controller) reject(a Action) State {
	s := c.state
	s.Notices = append(s.Notices, errorf("%s is not available while %s", Name(a), s.Phase))
	return s
}

func (c *Controller) fetch(ctx context.Context, a Fetch) State {
	if c.state.Phase != PhaseFetching && c.state.Phase != PhaseSelecting {
		return c.reject(a)
	}

	date := a.Date
	if date.IsZero() {
		date = time.Now()
	}
	s := State{Phase: PhaseFetching, Date: date, Params: c.state.Params, Report: c.state.Report}

	rows, err := c.scanner.Query(ctx, date)
	if err != nil {
		logger.ErrorWithErr(ctx, "Scanner query failed", err, "date", date.Format("2006-01-02"))
		s.Notices = append(s.Notices, errorf("scanner query failed: %v", err))
		return s
	}
	if len(rows) == 0 {
		s.Notices = append(s.Notices, info("no scanner data for %s", date.Format("2006-01-02")))
		return s
	}

	s.Phase = PhaseSelecting
	s.Rows = rows
	s.Choices = make([]types.Action, len(rows))
	s.Notices = append(s.Notices, info("%d rows loaded for %s", len(rows), date.Format("2006-01-02")))
	return s
}

func (c *Controller) choose(a Choose) State {
	if c.state.Phase != PhaseSelecting {
		return c.reject(a)
	}
	s := c.state.clone()
	found := false
	for i, r := range s.Rows {
		if strings.EqualFold(r.Symbol, a.Symbol) {
			s.Choices[i] = a.Action
			found = true
		}
	}
	if !found {
		s.Notices = append(s.Notices, errorf("unknown symbol %q", a.Symbol))
	}
	return s
}

func (c *Controller) proceed(ctx context.Context, a Proceed) State {
	if c.state.Phase != PhaseSelecting {
		return c.reject(a)
	}
	s := c.state.clone()
	s.Params = a.Params

	selections := s.Selections()
	if len(selections) == 0 {
		s.Notices = append(s.Notices, errorf("no symbols selected: every row is SKIP"))
		return s
	}

	res, err := c.finalizer.Finalize(ctx, selections, a.Params)
	s.Skipped = res.Skipped
	for _, sk := range res.Skipped {
		s.Notices = append(s.Notices, warn("skipped %s", sk))
	}
	switch {
	case errors.Is(err, finalizer.ErrNothingFinalizable):
		s.Notices = append(s.Notices, errorf("no orders finalizable: all %d selected rows were skipped", len(selections)))
		return s
	case err != nil:
		s.Notices = append(s.Notices, errorf("finalization failed: %v", err))
		return s
	}

	s.Phase = PhaseReviewing
	s.Orders = res.Orders
	return s
}

func (c *Controller) back() State {
	if c.state.Phase != PhaseReviewing {
		return c.reject(Back{})
	}
	s := c.state.clone()
	s.Phase = PhaseSelecting
	s.Orders = nil
	s.Skipped = nil
	return s
}

func (c *Controller) edit(a Edit) State {
	if c.state.Phase != PhaseReviewing {
		return c.reject(a)
	}
	s := c.state.clone()
	if a.Index < 0 || a.Index >= len(s.Orders) {
		s.Notices = append(s.Notices, errorf("no finalized order at position %d", a.Index+1))
		return s
	}

	o, err := applyEdit(s.Orders[a.Index], a)
	if err != nil {
		s.Notices = append(s.Notices, errorf("%s: %v", s.Orders[a.Index].Row.Symbol, err))
		return s
	}
	s.Orders[a.Index] = o
	return s
}

// applyEdit validates every field before changing any of them.
func applyEdit(o types.FinalizedOrder, a Edit) (types.FinalizedOrder, error) {
	if a.BuyPrice != nil {
		p := finalizer.RoundPrice(*a.BuyPrice)
		if p <= 0 {
			return o, fmt.Errorf("buy price must be positive, got %v", *a.BuyPrice)
		}
		o.BuyPrice = p
	}
	if a.SellPrice != nil {
		p := finalizer.RoundPrice(*a.SellPrice)
		if p <= 0 {
			return o, fmt.Errorf("sell price must be positive, got %v", *a.SellPrice)
		}
		o.SellPrice = p
	}
	if a.Qty != nil {
		if *a.Qty < 1 {
			return o, fmt.Errorf("quantity must be at least 1, got %d", *a.Qty)
		}
		o.Quantity = *a.Qty
	}
	return o, nil
}

func (c *Controller) confirm(ctx context.Context) State {
	if c.state.Phase != PhaseReviewing {
		return c.reject(Confirm{})
	}

	c.setPhase(PhaseSubmitting)
	rep := c.submitter.submit(ctx, c.state.Orders)

	c.state.Report = rep
	c.state.Notices = append(c.state.Notices, summary(rep))
	c.setPhase(PhaseDone)

	s := State{Phase: PhaseSelecting, Params: c.state.Params, Report: rep}
	s.Notices = c.state.Notices
	return s
}

func (c *Controller) setPhase(p Phase) {
	from := c.state.Phase
	c.state.Phase = p
	c.notify(from, p)
}

func (c *Controller) reset() State {
	if c.state.Phase == PhaseSubmitting {
		return c.reject(Reset{})
	}
	return State{Phase: PhaseSelecting, Params: c.state.Params, Report: c.state.Report}
}

func summary(rep *Report) Notice {
	n := info("batch %s: %d placed, %d failed", rep.BatchID, rep.Succeeded, rep.Failed)
	if rep.Failed > 0 {
		n.Level = LevelWarn
	}
	return n
}

func info(format string, args ...any) Notice {
	return Notice{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Notice {
	return Notice{Level: LevelWarn, Text: fmt.Sprintf(format, args...)}
}

func errorf(format string, args ...any) Notice {
	return Notice{Level: LevelError, Text: fmt.Sprintf(format, args...)}
}
