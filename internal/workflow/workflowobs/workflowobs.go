package workflowobs

import (
	"context"
	"time"

	"scanner-approval/internal/logger"
	"scanner-approval/internal/trace"
	"scanner-approval/internal/workflow"
)

type observableMachine struct {
	machine workflow.Machine
}

var _ workflow.Machine = (*observableMachine)(nil)

func Wrap(m workflow.Machine) workflow.Machine {
	return &observableMachine{
		machine: m,
	}
}

func (om *observableMachine) Dispatch(ctx context.Context, a workflow.Action) workflow.State {
	ctx, span := trace.StartSpan(ctx, "workflow."+workflow.Name(a))
	defer span.End()

	start := time.Now()
	from := om.machine.State().Phase

	s := om.machine.Dispatch(ctx, a)

	fields := []any{
		"action", workflow.Name(a),
		"from", from.String(),
		"to", s.Phase.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	for _, n := range s.Notices {
		if n.Level == workflow.LevelError {
			logger.InfoSkip(ctx, 1, "Workflow action rejected", append(fields, "notice", n.Text)...)
			return s
		}
	}
	if _, ok := a.(workflow.Confirm); ok && s.Report != nil {
		fields = append(fields,
			"batch_id", s.Report.BatchID,
			"succeeded", s.Report.Succeeded,
			"failed", s.Report.Failed,
		)
	}
	logger.InfoSkip(ctx, 1, "Workflow action completed", fields...)
	return s
}

func (om *observableMachine) State() workflow.State {
	return om.machine.State()
}
