package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/estatedesk/partnerflow/pkg/cmd"
	"github.com/estatedesk/partnerflow/pkg/dispatcher"
	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/log"
	"github.com/estatedesk/partnerflow/pkg/metrics"
	"github.com/estatedesk/partnerflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "partnerflow-api",
		Usage:                 "Dispatch and manage publishing and onboarding workflows over HTTP",
		EnableShellCompletion: true,
		Flags: append(cmd.ConfigFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := cmd.LoadConfig(command)
			if err != nil {
				return err
			}

			log.Setup(cfg.LogLevel)

			logger.InfoContext(ctx, "Initializing partnerflow API", "engine_enabled", cfg.Engine.Enabled)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tracer, shutdown, err := otelhelper.NewTracer(ctx, "partnerflow-api", cfg.TracingEnabled)
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
				}
			}()

			rt, err := cmd.NewRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			var opts []dispatcher.Option

			eng := rt.NewEngine(logger)
			if eng != nil {
				if err := eng.Connect(ctx); err != nil {
					logger.WarnContext(ctx, "Engine not reachable at startup, runs will fall back to direct execution", "error", err)
				}

				monitor, err := engine.NewMonitor(eng, cfg.Engine.HealthSchedule, cfg.Engine.ConnectTimeout, logger)
				if err != nil {
					return err
				}

				monitor.Check()
				monitor.Start()
				defer monitor.Stop()

				opts = append(opts, dispatcher.WithHealth(monitor))
			}

			m := metrics.New()

			d, err := rt.NewDispatcher(ctx, eng, m, tracer, logger, opts...)
			if err != nil {
				return err
			}

			return NewAPI(logger, d, rt.Persistence, m).Start(ctx, command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("API exited", "error", err)
		os.Exit(1)
	}
}
