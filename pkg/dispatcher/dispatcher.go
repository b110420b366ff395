// Package dispatcher is the entry point request handlers use to run workflows. It
// prefers the Temporal engine and falls back to in-process execution when the engine
// is disabled or cannot be reached.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/metrics"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/otelhelper"
	"github.com/estatedesk/partnerflow/pkg/runguard"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine is the subset of engine.Engine the dispatcher drives.
type Engine interface {
	StartWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (engine.Run, error)
	ExecuteWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (engine.Execution, error)
	Describe(ctx context.Context, workflowID, runID string) (engine.WorkflowDescription, error)
	Result(ctx context.Context, workflowID, runID string) (models.WorkflowResult, error)
	Query(ctx context.Context, workflowID, runID, queryType string, args ...any) (any, error)
	Signal(ctx context.Context, workflowID, runID, signalName string, arg any) error
	Cancel(ctx context.Context, workflowID, runID string) error
	Terminate(ctx context.Context, workflowID, runID, reason string) error
	List(ctx context.Context, query string, pageSize int32) ([]engine.WorkflowDescription, error)
	HealthCheck(ctx context.Context) error
}

// AsyncResult reports a started run. Result is set when the run executed in process.
type AsyncResult struct {
	WorkflowID string                 `json:"workflowId"`
	RunID      string                 `json:"runId,omitempty"`
	Mode       models.ExecutionMode   `json:"mode"`
	Result     *models.WorkflowResult `json:"result,omitempty"`
}

type SyncResult struct {
	WorkflowID string                `json:"workflowId"`
	RunID      string                `json:"runId,omitempty"`
	Mode       models.ExecutionMode  `json:"mode"`
	Result     models.WorkflowResult `json:"result"`
}

// Health reports the engine's last known health, as kept by engine.Monitor.
type Health interface {
	Healthy() bool
}

type Dispatcher struct {
	registry *workflows.Registry
	direct   *workflows.DirectRunner
	engine   Engine
	health   Health
	guard    runguard.Guard
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
	schemas  map[string]*gojsonschema.Schema
}

type Option func(*Dispatcher)

// WithEngine enables engine-backed execution. Without it every run is direct.
func WithEngine(e Engine) Option {
	return func(d *Dispatcher) {
		d.engine = e
	}
}

// WithHealth makes runs skip the engine while it is known to be unhealthy.
func WithHealth(health Health) Option {
	return func(d *Dispatcher) {
		d.health = health
	}
}

func WithGuard(guard runguard.Guard) Option {
	return func(d *Dispatcher) {
		d.guard = guard
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func New(registry *workflows.Registry, direct *workflows.DirectRunner, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		registry: registry,
		direct:   direct,
		guard:    runguard.NewMemory(runguard.DefaultTTL),
		metrics:  metrics.New(),
		tracer:   noop.NewTracerProvider().Tracer("partnerflow"),
		logger:   slog.Default(),
		now:      time.Now,
		schemas:  make(map[string]*gojsonschema.Schema),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With("component", "dispatcher")

	for _, name := range registry.Names() {
		definition, _ := registry.Lookup(name)
		if definition.InputSchema == nil {
			continue
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("invalid input schema for %s: %w", name, err)
		}

		d.schemas[name] = schema
	}

	return d, nil
}

// IsUsingEngine reports whether runs are configured to go through the engine.
func (d *Dispatcher) IsUsingEngine() bool {
	return d.engine != nil
}

// RunAsync starts name on the engine and returns without waiting. When the engine is
// disabled, or unreachable, the run executes in process before returning.
func (d *Dispatcher) RunAsync(ctx context.Context, name string, input models.WorkflowInput, workflowID string) (AsyncResult, error) {
	definition, input, err := d.prepare(name, input)
	if err != nil {
		return AsyncResult{}, err
	}

	workflowID = d.workflowID(definition, input, workflowID)
	started := d.now()

	ctx, span := d.startSpan(ctx, "dispatcher.run_async", name, workflowID)
	defer span.End()

	if d.engine == nil {
		result, err := d.runDirect(ctx, definition, workflowID, input)
		d.finish(span, name, models.ModeDirect, started, &result, err)

		if err != nil {
			return AsyncResult{}, err
		}

		return AsyncResult{WorkflowID: workflowID, Mode: models.ModeDirect, Result: &result}, nil
	}

	err = d.engineDown()
	if err == nil {
		var run engine.Run

		run, err = d.engine.StartWorkflow(ctx, name, workflowID, input)
		if err == nil {
			d.finish(span, name, models.ModeTemporal, started, nil, nil)

			return AsyncResult{WorkflowID: run.WorkflowID, RunID: run.RunID, Mode: models.ModeTemporal}, nil
		}
	}

	if !errors.Is(err, engine.ErrEngineUnreachable) {
		d.finish(span, name, models.ModeTemporal, started, nil, err)

		return AsyncResult{}, err
	}

	d.logger.WarnContext(ctx, "Engine unreachable, running workflow in process", "workflow", name, "workflow_id", workflowID, "error", err)
	d.metrics.ObserveFallback(name)

	result, err := d.runDirect(ctx, definition, workflowID, input)
	d.finish(span, name, models.ModeDirectFallback, started, &result, err)

	if err != nil {
		return AsyncResult{}, err
	}

	return AsyncResult{WorkflowID: workflowID, Mode: models.ModeDirectFallback, Result: &result}, nil
}

// RunSync runs name to completion, on the engine when possible.
func (d *Dispatcher) RunSync(ctx context.Context, name string, input models.WorkflowInput, workflowID string) (SyncResult, error) {
	definition, input, err := d.prepare(name, input)
	if err != nil {
		return SyncResult{}, err
	}

	workflowID = d.workflowID(definition, input, workflowID)
	started := d.now()

	ctx, span := d.startSpan(ctx, "dispatcher.run_sync", name, workflowID)
	defer span.End()

	mode := models.ModeDirect

	if d.engine != nil {
		err := d.engineDown()
		if err == nil {
			var execution engine.Execution

			execution, err = d.engine.ExecuteWorkflow(ctx, name, workflowID, input)
			if err == nil {
				d.finish(span, name, models.ModeTemporal, started, &execution.Result, nil)

				return SyncResult{
					WorkflowID: execution.WorkflowID,
					RunID:      execution.RunID,
					Mode:       models.ModeTemporal,
					Result:     execution.Result,
				}, nil
			}

			// the engine accepted the run, so it is reported rather than run again here
			if errors.Is(err, engine.ErrResultUnavailable) {
				d.finish(span, name, models.ModeTemporal, started, nil, err)

				return SyncResult{WorkflowID: execution.WorkflowID, RunID: execution.RunID, Mode: models.ModeTemporal}, err
			}
		}

		if !errors.Is(err, engine.ErrEngineUnreachable) {
			d.finish(span, name, models.ModeTemporal, started, nil, err)

			return SyncResult{}, err
		}

		d.logger.WarnContext(ctx, "Engine unreachable, running workflow in process", "workflow", name, "workflow_id", workflowID, "error", err)
		d.metrics.ObserveFallback(name)

		mode = models.ModeDirectFallback
	}

	result, err := d.runDirect(ctx, definition, workflowID, input)
	d.finish(span, name, mode, started, &result, err)

	if err != nil {
		return SyncResult{}, err
	}

	return SyncResult{WorkflowID: workflowID, Mode: mode, Result: result}, nil
}

// RunDirect runs name in process regardless of configuration.
func (d *Dispatcher) RunDirect(ctx context.Context, name string, input models.WorkflowInput, workflowID string) (SyncResult, error) {
	definition, input, err := d.prepare(name, input)
	if err != nil {
		return SyncResult{}, err
	}

	workflowID = d.workflowID(definition, input, workflowID)
	started := d.now()

	ctx, span := d.startSpan(ctx, "dispatcher.run_direct", name, workflowID)
	defer span.End()

	result, err := d.runDirect(ctx, definition, workflowID, input)
	d.finish(span, name, models.ModeDirect, started, &result, err)

	if err != nil {
		return SyncResult{}, err
	}

	return SyncResult{WorkflowID: workflowID, Mode: models.ModeDirect, Result: result}, nil
}

// engineDown returns ErrEngineUnreachable while the health monitor reports a failing
// engine, so runs fall back without dialing.
func (d *Dispatcher) engineDown() error {
	if d.health == nil || d.health.Healthy() {
		return nil
	}

	return fmt.Errorf("%w: health check failing", engine.ErrEngineUnreachable)
}

// runDirect runs the definition once per workflow ID: a repeated ID replays the
// stored result and a concurrent one is rejected.
func (d *Dispatcher) runDirect(ctx context.Context, definition workflows.Definition, workflowID string, input models.WorkflowInput) (models.WorkflowResult, error) {
	stored, err := d.guard.Begin(ctx, workflowID)
	if err != nil {
		return models.WorkflowResult{}, err
	}

	if stored != nil {
		d.logger.InfoContext(ctx, "Replaying completed run", "workflow", definition.Name, "workflow_id", workflowID)

		return *stored, nil
	}

	result, err := d.direct.Run(ctx, definition.Name, workflowID, input)
	if err != nil {
		if abandonErr := d.guard.Abandon(ctx, workflowID); abandonErr != nil {
			d.logger.ErrorContext(ctx, "Failed to release run claim", "workflow_id", workflowID, "error", abandonErr)
		}

		return models.WorkflowResult{}, err
	}

	if err := d.guard.Complete(ctx, workflowID, result); err != nil {
		d.logger.ErrorContext(ctx, "Failed to store run result", "workflow_id", workflowID, "error", err)
	}

	return result, nil
}

func (d *Dispatcher) prepare(name string, input models.WorkflowInput) (workflows.Definition, models.WorkflowInput, error) {
	definition, err := d.registry.Lookup(name)
	if err != nil {
		return workflows.Definition{}, nil, err
	}

	if input == nil {
		input = models.WorkflowInput{}
	}

	schema, ok := d.schemas[name]
	if !ok {
		return definition, input, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return workflows.Definition{}, nil, workflows.NewValidationError("Invalid workflow input", err.Error())
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, describe(desc))
		}

		return workflows.Definition{}, nil, workflows.NewValidationError("Invalid workflow input", problems...)
	}

	return definition, input, nil
}

func describe(desc gojsonschema.ResultError) string {
	if desc.Field() == gojsonschema.STRING_CONTEXT_ROOT {
		return desc.Description()
	}

	return desc.Field() + ": " + desc.Description()
}

// workflowID returns the caller's ID or builds {name}-{draftId|userId}-{unixMillis}.
func (d *Dispatcher) workflowID(definition workflows.Definition, input models.WorkflowInput, requested string) string {
	if requested != "" {
		return requested
	}

	reference := definition.Reference(input)
	if reference == "" {
		reference = uuid.NewString()
	}

	return fmt.Sprintf("%s-%s-%d", definition.Name, reference, d.now().UnixMilli())
}

func (d *Dispatcher) startSpan(ctx context.Context, operation, name, workflowID string) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, d.tracer, operation,
		attribute.String(otelhelper.WorkflowNameKey, name),
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
	)
}

func (d *Dispatcher) finish(span trace.Span, name string, mode models.ExecutionMode, started time.Time, result *models.WorkflowResult, err error) {
	elapsed := d.now().Sub(started)

	switch {
	case err != nil:
		otelhelper.SetError(span, err, attribute.String(otelhelper.ModeKey, string(mode)))
		d.metrics.ObserveDispatch(name, string(mode), metrics.OutcomeError, elapsed)
	case result == nil:
		otelhelper.SetOutcome(span, string(mode), "STARTED")
		d.metrics.ObserveDispatch(name, string(mode), metrics.OutcomeStarted, elapsed)
	case result.Success:
		otelhelper.SetOutcome(span, string(mode), string(result.State))
		d.metrics.ObserveDispatch(name, string(mode), metrics.OutcomeSucceeded, elapsed)
	default:
		otelhelper.SetOutcome(span, string(mode), string(result.State))
		d.metrics.ObserveDispatch(name, string(mode), metrics.OutcomeFailed, elapsed)
	}
}
