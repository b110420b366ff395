package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/estatedesk/partnerflow/pkg/activities"
	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/dispatcher"
	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/metrics"
	"github.com/estatedesk/partnerflow/pkg/notification"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/estatedesk/partnerflow/pkg/runguard"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	"go.opentelemetry.io/otel/trace"
)

// Runtime holds the collaborators shared by the binaries. Close releases them in
// reverse order of creation.
type Runtime struct {
	Config      *config.Config
	Persistence persistence.Persistence
	Sender      notification.Sender
	Activities  *activities.Activities
	Registry    *workflows.Registry

	closers []func() error
}

func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Registry: workflows.DefaultRegistry()}

	store, err := NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	rt.Persistence = store
	rt.closers = append(rt.closers, func() error { return store.Close(context.WithoutCancel(ctx)) })

	sender, err := notification.NewSender(ctx, cfg.NotifyBus, cfg.KafkaBrokers, logger)
	if err != nil {
		_ = rt.Close()

		return nil, fmt.Errorf("failed to create notification sender: %w", err)
	}

	rt.Sender = sender
	rt.closers = append(rt.closers, sender.Close)

	rt.Activities = activities.New(store, sender, cfg.Credits, logger)

	return rt, nil
}

// NewEngine returns nil when the engine is disabled.
func (rt *Runtime) NewEngine(logger *slog.Logger) *engine.Engine {
	if !rt.Config.Engine.Enabled {
		return nil
	}

	conn := engine.NewConnection(rt.Config.Engine, logger)
	rt.closers = append(rt.closers, func() error {
		conn.Close()

		return nil
	})

	return engine.New(conn, rt.Config.Engine, logger)
}

// NewDispatcher wires a dispatcher over eng, which may be nil. extra is applied after
// the runtime's own options.
func (rt *Runtime) NewDispatcher(
	ctx context.Context,
	eng *engine.Engine,
	m *metrics.Metrics,
	tracer trace.Tracer,
	logger *slog.Logger,
	extra ...dispatcher.Option,
) (*dispatcher.Dispatcher, error) {
	guard, err := runguard.New(ctx, rt.Config.RedisURL, runguard.DefaultTTL, logger)
	if err != nil {
		return nil, err
	}

	if closer, ok := guard.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, closer.Close)
	}

	direct := workflows.NewDirectRunner(rt.Registry, rt.Activities.Functions(),
		workflows.WithResilience(rt.Config.DirectResilience),
		workflows.WithLogger(logger),
	)

	opts := []dispatcher.Option{
		dispatcher.WithGuard(guard),
		dispatcher.WithMetrics(m),
		dispatcher.WithTracer(tracer),
		dispatcher.WithLogger(logger),
	}

	if eng != nil {
		opts = append(opts, dispatcher.WithEngine(eng))
	}

	opts = append(opts, extra...)

	return dispatcher.New(rt.Registry, direct, opts...)
}

func (rt *Runtime) Close() error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
