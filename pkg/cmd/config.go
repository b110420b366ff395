// Package cmd provides common initialization functions for the partnerflow binaries.
package cmd

import (
	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/urfave/cli/v3"
)

// ConfigFlags are the flags every binary accepts. Set flags override the environment.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "database-url",
			Usage: "Database connection URL for persistence (postgres://... or file://path)",
		},
		&cli.BoolFlag{
			Name:  "engine-enabled",
			Usage: "Run workflows on the Temporal engine",
		},
		&cli.StringFlag{
			Name:  "engine-address",
			Usage: "Temporal frontend host:port",
		},
		&cli.StringFlag{
			Name:  "task-queue",
			Usage: "Temporal task queue workflows and activities are registered on",
		},
		&cli.BoolFlag{
			Name:  "direct-resilience",
			Usage: "Apply step timeouts and retries to in-process runs",
		},
		&cli.StringFlag{
			Name:  "notify-bus",
			Usage: "Notification bus (kafka, gochannel, log)",
		},
		&cli.StringFlag{
			Name:  "redis-url",
			Usage: "Redis URL for the in-process run guard",
		},
		&cli.BoolFlag{
			Name:  "tracing",
			Usage: "Export OpenTelemetry traces",
		},
	}
}

// LoadConfig reads the environment and applies the flags set on command.
func LoadConfig(command *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}

	if command.IsSet("database-url") {
		cfg.DatabaseURL = command.String("database-url")
	}

	if command.IsSet("engine-enabled") {
		cfg.Engine.Enabled = command.Bool("engine-enabled")
	}

	if command.IsSet("engine-address") {
		cfg.Engine.Address = command.String("engine-address")
	}

	if command.IsSet("task-queue") {
		cfg.Engine.TaskQueue = command.String("task-queue")
	}

	if command.IsSet("direct-resilience") {
		cfg.DirectResilience = command.Bool("direct-resilience")
	}

	if command.IsSet("notify-bus") {
		cfg.NotifyBus = command.String("notify-bus")
	}

	if command.IsSet("redis-url") {
		cfg.RedisURL = command.String("redis-url")
	}

	if command.IsSet("tracing") {
		cfg.TracingEnabled = command.Bool("tracing")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
