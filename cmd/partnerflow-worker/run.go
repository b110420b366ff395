package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/estatedesk/partnerflow/pkg/cmd"
	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/engine"
	plog "github.com/estatedesk/partnerflow/pkg/log"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

var errEngineRequired = errors.New("the worker needs ENGINE_ENABLED=true")

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Engine.Enabled {
		return errEngineRequired
	}

	rt, err := cmd.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	conn := engine.NewConnection(cfg.Engine, logger)
	defer conn.Close()

	lease, err := conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to temporal at %s: %w", cfg.Engine.Address, err)
	}
	defer lease.Release()

	w := newWorker(lease.Client(), cfg, rt.Registry, rt.Activities.Functions())

	logger.InfoContext(ctx, "Worker started",
		"task_queue", cfg.Engine.TaskQueue,
		"workflows", rt.Registry.Names(),
		"max_concurrent_activities", cfg.Worker.MaxConcurrentActivities,
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	logger.InfoContext(ctx, "Worker stopped")

	return nil
}

// newWorker registers every workflow and activity on the configured task queue.
func newWorker(c client.Client, cfg *config.Config, registry *workflows.Registry, functions map[string]any) worker.Worker {
	w := worker.New(c, cfg.Engine.TaskQueue, workerOptions(cfg))

	register(w, registry, functions)

	return w
}

func workerOptions(cfg *config.Config) worker.Options {
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Worker.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.Worker.MaxConcurrentWorkflowTasks,
		WorkerStopTimeout:                      cfg.Worker.StopTimeout,
		Identity:                               "partnerflow-worker@" + cfg.Engine.TaskQueue,
		Logger:                                 plog.Temporal(plog.WithModule("temporal_worker")),
	}
}

type registrar interface {
	workflows.WorkflowRegistrar
	workflows.ActivityRegistrar
}

func register(r registrar, registry *workflows.Registry, functions map[string]any) {
	registry.Register(r)
	workflows.RegisterActivities(r, functions)
}
