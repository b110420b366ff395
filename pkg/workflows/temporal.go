package workflows

import (
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"
)

type temporalExecutor struct {
	ctx   workflow.Context
	state string
}

func newTemporalExecutor(ctx workflow.Context) *temporalExecutor {
	executor := &temporalExecutor{ctx: ctx, state: PhaseStarted}

	err := workflow.SetQueryHandler(ctx, CurrentStateQueryType, func() (string, error) {
		return executor.state, nil
	})
	if err != nil {
		workflow.GetLogger(ctx).Warn("Failed to register state query handler", "error", err)
	}

	return executor
}

func (e *temporalExecutor) Execute(step Step, name string, arg any, result any) error {
	return e.execute(e.ctx, step, name, arg, result)
}

func (e *temporalExecutor) Compensate(step Step, name string, arg any, result any) error {
	ctx, cancel := workflow.NewDisconnectedContext(e.ctx)
	defer cancel()

	return e.execute(ctx, step, name, arg, result)
}

func (e *temporalExecutor) execute(ctx workflow.Context, step Step, name string, arg any, result any) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: step.StartToCloseTimeout,
		RetryPolicy:         step.Retry.temporal(),
	})

	return workflow.ExecuteActivity(ctx, name, arg).Get(ctx, result)
}

func (e *temporalExecutor) Logger() tlog.Logger {
	return workflow.GetLogger(e.ctx)
}

func (e *temporalExecutor) SetState(state string) {
	e.state = state
}
