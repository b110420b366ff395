package dispatcher

import (
	"context"

	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/models"
)

func (d *Dispatcher) Describe(ctx context.Context, workflowID, runID string) (engine.WorkflowDescription, error) {
	if d.engine == nil {
		return engine.WorkflowDescription{}, engine.ErrEngineDisabled
	}

	return d.engine.Describe(ctx, workflowID, runID)
}

// Result waits for the run to close and returns its result.
func (d *Dispatcher) Result(ctx context.Context, workflowID, runID string) (models.WorkflowResult, error) {
	if d.engine == nil {
		return models.WorkflowResult{}, engine.ErrEngineDisabled
	}

	return d.engine.Result(ctx, workflowID, runID)
}

func (d *Dispatcher) Query(ctx context.Context, workflowID, runID, queryType string, args ...any) (any, error) {
	if d.engine == nil {
		return nil, engine.ErrEngineDisabled
	}

	return d.engine.Query(ctx, workflowID, runID, queryType, args...)
}

func (d *Dispatcher) Signal(ctx context.Context, workflowID, runID, signalName string, arg any) error {
	if d.engine == nil {
		return engine.ErrEngineDisabled
	}

	return d.engine.Signal(ctx, workflowID, runID, signalName, arg)
}

func (d *Dispatcher) Cancel(ctx context.Context, workflowID, runID string) error {
	if d.engine == nil {
		return engine.ErrEngineDisabled
	}

	return d.engine.Cancel(ctx, workflowID, runID)
}

func (d *Dispatcher) Terminate(ctx context.Context, workflowID, runID, reason string) error {
	if d.engine == nil {
		return engine.ErrEngineDisabled
	}

	return d.engine.Terminate(ctx, workflowID, runID, reason)
}

// List returns executions matching a Temporal visibility query.
func (d *Dispatcher) List(ctx context.Context, query string, pageSize int32) ([]engine.WorkflowDescription, error) {
	if d.engine == nil {
		return nil, engine.ErrEngineDisabled
	}

	return d.engine.List(ctx, query, pageSize)
}

// HealthCheck reports the engine's health. It is a no-op when the engine is disabled.
func (d *Dispatcher) HealthCheck(ctx context.Context) error {
	if d.engine == nil {
		return nil
	}

	return d.engine.HealthCheck(ctx)
}

// Workflows lists the names runs can be dispatched under.
func (d *Dispatcher) Workflows() []string {
	return d.registry.Names()
}
