package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// HealthChecker is the part of Engine the monitor checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Monitor checks the engine on a cron schedule so a broken client is dropped before a
// request runs into it. The dispatcher reads Healthy to skip the engine while it is
// down. The engine is assumed healthy until a check fails.
type Monitor struct {
	checker HealthChecker
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
	healthy atomic.Bool
}

func NewMonitor(checker HealthChecker, schedule string, timeout time.Duration, logger *slog.Logger) (*Monitor, error) {
	monitor := &Monitor{
		checker: checker,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		logger:  logger.With("component", "engine_monitor"),
	}

	monitor.healthy.Store(true)

	if _, err := monitor.cron.AddFunc(schedule, monitor.Check); err != nil {
		return nil, fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}

	return monitor, nil
}

func (m *Monitor) Start() {
	m.cron.Start()
}

// Stop stops the schedule and waits for a running check to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

// Check runs one health check and logs transitions.
func (m *Monitor) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	err := m.checker.HealthCheck(ctx)
	healthy := err == nil

	previous := m.healthy.Swap(healthy)

	switch {
	case healthy && !previous:
		m.logger.Info("Workflow engine is healthy")
	case !healthy && previous:
		m.logger.Warn("Workflow engine became unhealthy", "error", err)
	case !healthy:
		m.logger.Debug("Workflow engine still unhealthy", "error", err)
	}
}
