package main

import (
	"context"
	"os"

	"github.com/estatedesk/partnerflow/pkg/cmd"
	"github.com/estatedesk/partnerflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("partnerflow-worker")

	command := &cli.Command{
		Name:                  "partnerflow-worker",
		Usage:                 "Execute publishing and onboarding workflows from the Temporal task queue",
		EnableShellCompletion: true,
		Flags:                 cmd.ConfigFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := cmd.LoadConfig(command)
			if err != nil {
				return err
			}

			log.Setup(cfg.LogLevel)

			logger.InfoContext(ctx, "Initializing partnerflow worker", "task_queue", cfg.Engine.TaskQueue)

			return run(ctx, cfg, logger)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Worker exited", "error", err)
		os.Exit(1)
	}
}
