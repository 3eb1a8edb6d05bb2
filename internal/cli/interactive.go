package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2/terminal"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
	"scanner-approval/internal/workflow"
)

// InteractiveSession drives the approval workflow from terminal prompts.
type InteractiveSession struct {
	machine  workflow.Machine
	defaults finalizer.Params
	out      io.Writer
}

func NewInteractiveSession(m workflow.Machine, defaults finalizer.Params, out io.Writer) *InteractiveSession {
	return &InteractiveSession{machine: m, defaults: defaults, out: out}
}

// TransitionPrinter reports submission progress and the finished batch.
// Register it on the controller with OnTransition.
func TransitionPrinter(out io.Writer) workflow.Observer {
	return func(from, to workflow.Phase, s workflow.State) {
		switch to {
		case workflow.PhaseSubmitting:
			fmt.Fprintln(out, RenderTitle(fmt.Sprintf("Submitting %d placements", placements(s.Orders))))
		case workflow.PhaseDone:
			fmt.Fprintln(out, RenderTitle("Batch complete"))
			fmt.Fprintln(out, RenderReport(s.Report))
		}
	}
}

// Run loops until the operator quits, ctx ends, or a prompt is interrupted.
func (is *InteractiveSession) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		st := is.machine.State()
		var (
			quit bool
			err  error
		)
		switch {
		case st.Phase == workflow.PhaseReviewing:
			quit, err = is.review(ctx, st)
		case len(st.Rows) == 0:
			quit, err = is.fetch(ctx)
		default:
			quit, err = is.selecting(ctx, st)
		}

		if errors.Is(err, terminal.InterruptErr) {
			fmt.Fprintln(is.out, mutedStyle.Render("Interrupted."))
			return nil
		}
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (is *InteractiveSession) dispatch(ctx context.Context, a workflow.Action) workflow.State {
	st := is.machine.Dispatch(ctx, a)
	if len(st.Notices) > 0 {
		fmt.Fprintln(is.out, RenderNotices(st.Notices))
	}
	return st
}

func (is *InteractiveSession) fetch(ctx context.Context) (bool, error) {
	fmt.Fprintln(is.out, RenderTitle("Load scanner results"))
	date, err := PromptDate()
	if err != nil {
		return false, err
	}

	st := is.dispatch(ctx, workflow.Fetch{Date: date})
	if len(st.Rows) > 0 {
		return false, nil
	}
	again, err := Confirm("Try another date?")
	if err != nil {
		return false, err
	}
	return !again, nil
}

func (is *InteractiveSession) selecting(ctx context.Context, st workflow.State) (bool, error) {
	fmt.Fprintln(is.out, RenderTitle(fmt.Sprintf("Scanner results for %s", st.Date.Format(dateLayout))))
	fmt.Fprintln(is.out, RenderRows(st.Rows, st.Choices))

	choice, err := PromptSelectionMenu(st.Rows, st.Choices)
	if err != nil {
		return false, err
	}
	switch choice.Kind {
	case ChoiceRow:
		row := st.Rows[choice.Row]
		action, err := PromptRowAction(row, st.Choices[choice.Row])
		if err != nil {
			return false, err
		}
		is.dispatch(ctx, workflow.Choose{Symbol: row.Symbol, Action: action})
	case ChoiceProceed:
		params, err := PromptParams(is.defaults)
		if errors.Is(err, terminal.InterruptErr) {
			return false, err
		}
		if err != nil {
			fmt.Fprintln(is.out, errorStyle.Render("✗ "+err.Error()))
			return false, nil
		}
		is.defaults = params
		is.dispatch(ctx, workflow.Proceed{Params: params})
	case ChoiceReload:
		is.dispatch(ctx, workflow.Reset{})
	case ChoiceQuit:
		return true, nil
	}
	return false, nil
}

func (is *InteractiveSession) review(ctx context.Context, st workflow.State) (bool, error) {
	fmt.Fprintln(is.out, RenderTitle("Review finalized orders"))
	fmt.Fprintln(is.out, RenderReview(st.Orders, st.Skipped, st.Params))

	choice, err := PromptReviewAction()
	if err != nil {
		return false, err
	}
	switch choice {
	case ReviewConfirm:
		ok, err := Confirm(fmt.Sprintf("Place %d limit orders now?", placements(st.Orders)))
		if err != nil || !ok {
			return false, err
		}
		is.dispatch(ctx, workflow.Confirm{})
	case ReviewEdit:
		in, err := PromptEdit(st.Orders)
		if err != nil {
			return false, err
		}
		edit, err := in.Edit()
		if err != nil {
			fmt.Fprintln(is.out, errorStyle.Render("✗ "+err.Error()))
			return false, nil
		}
		is.dispatch(ctx, edit)
	case ReviewBack:
		is.dispatch(ctx, workflow.Back{})
	case ReviewReset:
		is.dispatch(ctx, workflow.Reset{})
	}
	return false, nil
}

// Edit converts the operator input into a workflow edit.
func (in EditInput) Edit() (workflow.Edit, error) {
	e := workflow.Edit{Index: in.Index}
	var err error
	if e.BuyPrice, err = parseOptionalFloat(in.BuyPrice); err != nil {
		return e, fmt.Errorf("buy price: %w", err)
	}
	if e.SellPrice, err = parseOptionalFloat(in.SellPrice); err != nil {
		return e, fmt.Errorf("sell price: %w", err)
	}
	if e.Qty, err = parseOptionalInt(in.Qty); err != nil {
		return e, fmt.Errorf("quantity: %w", err)
	}
	return e, nil
}

func placements(orders []types.FinalizedOrder) int {
	n := 0
	for _, o := range orders {
		n += len(o.Action.Sides())
	}
	return n
}
