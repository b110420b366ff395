// Package engine adapts the Temporal client to the operations partnerflow needs and
// translates its failures into the engine error taxonomy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/models"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

type Engine struct {
	conn   *Connection
	cfg    config.EngineConfig
	logger *slog.Logger
}

func New(conn *Connection, cfg config.EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With("component", "engine"),
	}
}

// Run identifies one workflow execution.
type Run struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

type Execution struct {
	Run
	Result models.WorkflowResult `json:"result"`
}

type WorkflowDescription struct {
	WorkflowID    string     `json:"workflowId"`
	RunID         string     `json:"runId"`
	WorkflowType  string     `json:"workflowType"`
	Status        string     `json:"status"`
	TaskQueue     string     `json:"taskQueue,omitempty"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	CloseTime     *time.Time `json:"closeTime,omitempty"`
	HistoryLength int64      `json:"historyLength"`
}

// Connect makes sure a client can be obtained.
func (e *Engine) Connect(ctx context.Context) error {
	lease, err := e.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	lease.Release()

	return nil
}

func (e *Engine) Close() {
	e.conn.Close()
}

// StartWorkflow starts name under workflowID and returns without waiting. Starting an
// ID that is still running returns that execution instead of a second one.
func (e *Engine) StartWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (Run, error) {
	var run Run

	err := e.withClient(ctx, "start workflow", func(c client.Client) error {
		started, err := c.ExecuteWorkflow(ctx, e.startOptions(workflowID), name, input)
		if err != nil {
			return err
		}

		run = Run{WorkflowID: started.GetID(), RunID: started.GetRunID()}

		return nil
	})
	if err != nil {
		return Run{}, err
	}

	e.logger.InfoContext(ctx, "Workflow started", "workflow", name, "workflow_id", run.WorkflowID, "run_id", run.RunID)

	return run, nil
}

// ExecuteWorkflow starts name and blocks until its result is available. Once the start
// is accepted, losing the engine while waiting yields a *ResultError carrying the run.
func (e *Engine) ExecuteWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (Execution, error) {
	var started client.WorkflowRun

	err := e.withClient(ctx, "execute workflow", func(c client.Client) error {
		var err error
		started, err = c.ExecuteWorkflow(ctx, e.startOptions(workflowID), name, input)

		return err
	})
	if err != nil {
		return Execution{}, err
	}

	execution := Execution{Run: Run{WorkflowID: started.GetID(), RunID: started.GetRunID()}}

	err = e.withClient(ctx, "wait for workflow", func(client.Client) error {
		return started.Get(ctx, &execution.Result)
	})
	if err == nil {
		return execution, nil
	}

	if isUnreachable(err) {
		e.logger.WarnContext(ctx, "Lost engine while waiting for workflow result",
			"workflow", name, "workflow_id", execution.WorkflowID, "run_id", execution.RunID, "error", err)

		return execution, &ResultError{Run: execution.Run, Err: err}
	}

	return execution, err
}

func (e *Engine) startOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: e.cfg.TaskQueue,
		// returns the running execution for a duplicate ID
		WorkflowExecutionErrorWhenAlreadyStarted: false,
	}
}

func (e *Engine) GetHandle(ctx context.Context, workflowID, runID string) (client.WorkflowRun, error) {
	var run client.WorkflowRun

	err := e.withClient(ctx, "get workflow", func(c client.Client) error {
		run = c.GetWorkflow(ctx, workflowID, runID)

		return nil
	})

	return run, err
}

func (e *Engine) Describe(ctx context.Context, workflowID, runID string) (WorkflowDescription, error) {
	var description WorkflowDescription

	err := e.withClient(ctx, "describe workflow", func(c client.Client) error {
		resp, err := c.DescribeWorkflowExecution(ctx, workflowID, runID)
		if err != nil {
			return err
		}

		description = describe(resp.GetWorkflowExecutionInfo())

		return nil
	})

	return description, err
}

func (e *Engine) Result(ctx context.Context, workflowID, runID string) (models.WorkflowResult, error) {
	var result models.WorkflowResult

	err := e.withClient(ctx, "get workflow result", func(c client.Client) error {
		return c.GetWorkflow(ctx, workflowID, runID).Get(ctx, &result)
	})

	return result, err
}

func (e *Engine) Query(ctx context.Context, workflowID, runID, queryType string, args ...any) (any, error) {
	var answer any

	err := e.withClient(ctx, "query workflow", func(c client.Client) error {
		value, err := c.QueryWorkflow(ctx, workflowID, runID, queryType, args...)
		if err != nil {
			return err
		}

		return value.Get(&answer)
	})

	return answer, err
}

func (e *Engine) Signal(ctx context.Context, workflowID, runID, signalName string, arg any) error {
	return e.withClient(ctx, "signal workflow", func(c client.Client) error {
		return c.SignalWorkflow(ctx, workflowID, runID, signalName, arg)
	})
}

func (e *Engine) Cancel(ctx context.Context, workflowID, runID string) error {
	return e.withClient(ctx, "cancel workflow", func(c client.Client) error {
		return c.CancelWorkflow(ctx, workflowID, runID)
	})
}

func (e *Engine) Terminate(ctx context.Context, workflowID, runID, reason string) error {
	return e.withClient(ctx, "terminate workflow", func(c client.Client) error {
		return c.TerminateWorkflow(ctx, workflowID, runID, reason)
	})
}

// List returns executions matching a visibility query, newest first.
func (e *Engine) List(ctx context.Context, query string, pageSize int32) ([]WorkflowDescription, error) {
	var descriptions []WorkflowDescription

	err := e.withClient(ctx, "list workflows", func(c client.Client) error {
		resp, err := c.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
			Namespace: e.cfg.Namespace,
			PageSize:  pageSize,
			Query:     query,
		})
		if err != nil {
			return err
		}

		descriptions = make([]WorkflowDescription, 0, len(resp.GetExecutions()))
		for _, info := range resp.GetExecutions() {
			descriptions = append(descriptions, describe(info))
		}

		return nil
	})

	return descriptions, err
}

// HealthCheck performs a round trip to the engine.
func (e *Engine) HealthCheck(ctx context.Context) error {
	return e.withClient(ctx, "health check", func(c client.Client) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})

		return err
	})
}

// withClient runs fn on a leased client. A failure that shows the engine is unreachable
// invalidates the client so the next call reconnects.
func (e *Engine) withClient(ctx context.Context, op string, fn func(client.Client) error) error {
	lease, err := e.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	err = translate(fn(lease.Client()))
	if err == nil {
		return nil
	}

	if isUnreachable(err) {
		e.conn.Invalidate(lease)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

func describe(info *workflowpb.WorkflowExecutionInfo) WorkflowDescription {
	description := WorkflowDescription{
		WorkflowID:    info.GetExecution().GetWorkflowId(),
		RunID:         info.GetExecution().GetRunId(),
		WorkflowType:  info.GetType().GetName(),
		Status:        info.GetStatus().String(),
		TaskQueue:     info.GetTaskQueue(),
		HistoryLength: info.GetHistoryLength(),
	}

	if ts := info.GetStartTime(); ts != nil {
		start := ts.AsTime()
		description.StartTime = &start
	}

	if ts := info.GetCloseTime(); ts != nil {
		closed := ts.AsTime()
		description.CloseTime = &closed
	}

	return description
}
