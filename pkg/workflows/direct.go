package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	plog "github.com/estatedesk/partnerflow/pkg/log"
	"github.com/estatedesk/partnerflow/pkg/models"
	"go.temporal.io/sdk/converter"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// DirectRunner runs registered workflow definitions in the calling goroutine, calling
// activity functions in process. Values cross every step through the same data
// converter the engine uses, so results have the same shape in both modes.
type DirectRunner struct {
	registry  *Registry
	functions map[string]any
	resilient bool
	logger    *slog.Logger
	converter converter.DataConverter
}

type DirectOption func(*DirectRunner)

// WithResilience applies each step's timeout and retry policy to direct calls. Without
// it an activity error propagates on the first failure and calls are not bounded.
func WithResilience(enabled bool) DirectOption {
	return func(r *DirectRunner) {
		r.resilient = enabled
	}
}

func WithLogger(logger *slog.Logger) DirectOption {
	return func(r *DirectRunner) {
		r.logger = logger
	}
}

func NewDirectRunner(registry *Registry, functions map[string]any, opts ...DirectOption) *DirectRunner {
	runner := &DirectRunner{
		registry:  registry,
		functions: functions,
		logger:    plog.WithModule("direct_runner"),
		converter: converter.GetDefaultDataConverter(),
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run executes the named definition to completion. A panicking step ends the run
// with ErrWorkflowPanicked.
func (r *DirectRunner) Run(ctx context.Context, name, workflowID string, input models.WorkflowInput) (out models.WorkflowResult, err error) {
	definition, err := r.registry.Lookup(name)
	if err != nil {
		return models.WorkflowResult{}, err
	}

	var decoded models.WorkflowInput
	if err := r.roundTrip(input, &decoded); err != nil {
		return models.WorkflowResult{}, fmt.Errorf("failed to encode input of %s: %w", name, err)
	}

	logger := r.logger.With("workflow", name, "workflow_id", workflowID)
	logger.InfoContext(ctx, "Running workflow in process", "resilient", r.resilient)

	executor := &directExecutor{
		ctx:       ctx,
		functions: r.functions,
		resilient: r.resilient,
		logger:    plog.Temporal(logger),
		converter: r.converter,
		state:     PhaseStarted,
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "Workflow panicked", "phase", executor.state, "panic", recovered)

			out, err = models.WorkflowResult{}, fmt.Errorf("%w: %s during %s: %v", ErrWorkflowPanicked, name, executor.state, recovered)
		}
	}()

	result, err := definition.Run(executor, decoded)
	if err != nil {
		logger.ErrorContext(ctx, "Workflow failed", "phase", executor.state, "error", err)

		return models.WorkflowResult{}, err
	}

	if err := r.roundTrip(result, &out); err != nil {
		return models.WorkflowResult{}, fmt.Errorf("failed to encode result of %s: %w", name, err)
	}

	return out, nil
}

func (r *DirectRunner) roundTrip(value any, target any) error {
	payload, err := r.converter.ToPayload(value)
	if err != nil {
		return err
	}

	return r.converter.FromPayload(payload, target)
}

type directExecutor struct {
	ctx       context.Context
	functions map[string]any
	resilient bool
	logger    tlog.Logger
	converter converter.DataConverter
	state     string
}

func (e *directExecutor) Logger() tlog.Logger {
	return e.logger
}

func (e *directExecutor) SetState(state string) {
	e.state = state
}

func (e *directExecutor) Compensate(step Step, name string, arg any, result any) error {
	detached := *e
	detached.ctx = context.WithoutCancel(e.ctx)

	return detached.Execute(step, name, arg, result)
}

func (e *directExecutor) Execute(step Step, name string, arg any, result any) error {
	fn, ok := e.functions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActivity, name)
	}

	if !e.resilient {
		return e.invoke(e.ctx, fn, arg, result)
	}

	attempt := func() error {
		ctx, cancel := context.WithTimeout(e.ctx, step.StartToCloseTimeout)
		defer cancel()

		err := e.invoke(ctx, fn, arg, result)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("Activity failed, retrying", "activity", name, "error", err, "backoff", wait)
	}

	return backoff.RetryNotify(attempt, e.policy(step), notify)
}

func (e *directExecutor) policy(step Step) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = step.Retry.InitialInterval
	exponential.Multiplier = step.Retry.BackoffCoefficient
	exponential.MaxInterval = step.Retry.MaximumInterval
	exponential.MaxElapsedTime = 0

	retries := uint64(0)
	if step.Retry.MaximumAttempts > 1 {
		retries = uint64(step.Retry.MaximumAttempts - 1)
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, retries), e.ctx)
}

// invoke calls fn(ctx, arg) where fn has the activity shape func(context.Context, In) (Out, error).
func (e *directExecutor) invoke(ctx context.Context, fn any, arg any, result any) error {
	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func || fnType.NumIn() != 2 || fnType.NumOut() != 2 || !fnType.In(0).Implements(contextType) {
		return fmt.Errorf("activity has unsupported signature %s", fnType)
	}

	argValue := reflect.New(fnType.In(1))
	if err := e.roundTripValue(arg, argValue.Interface()); err != nil {
		return fmt.Errorf("failed to encode activity argument: %w", err)
	}

	out := fnValue.Call([]reflect.Value{reflect.ValueOf(ctx), argValue.Elem()})

	if errValue := out[1]; !errValue.IsNil() {
		err, _ := errValue.Interface().(error)

		return err
	}

	if result == nil {
		return nil
	}

	if err := e.roundTripValue(out[0].Interface(), result); err != nil {
		return fmt.Errorf("failed to decode activity result: %w", err)
	}

	return nil
}

func (e *directExecutor) roundTripValue(value any, target any) error {
	payload, err := e.converter.ToPayload(value)
	if err != nil {
		return err
	}

	return e.converter.FromPayload(payload, target)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.NonRetryable() {
		return false
	}

	return true
}
