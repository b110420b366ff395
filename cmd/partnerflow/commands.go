package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/estatedesk/partnerflow/pkg/cmd"
	"github.com/estatedesk/partnerflow/pkg/dispatcher"
	"github.com/estatedesk/partnerflow/pkg/log"
	"github.com/estatedesk/partnerflow/pkg/metrics"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace/noop"
)

var errMissingArgument = errors.New("missing argument")

// withDispatcher builds the runtime for one command invocation.
func withDispatcher(ctx context.Context, command *cli.Command, fn func(*dispatcher.Dispatcher) error) error {
	cfg, err := cmd.LoadConfig(command)
	if err != nil {
		return err
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithModule("partnerflow-cli")

	rt, err := cmd.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	d, err := rt.NewDispatcher(ctx, rt.NewEngine(logger), metrics.New(), noop.NewTracerProvider().Tracer("partnerflow-cli"), logger)
	if err != nil {
		return err
	}

	return fn(d)
}

func workflowIDArg(command *cli.Command) (string, error) {
	id := command.Args().First()
	if id == "" {
		return "", fmt.Errorf("%w: workflow id", errMissingArgument)
	}

	return id, nil
}

func runIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "run-id",
		Usage: "Run ID (latest run when empty)",
	}
}

func definitionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "definitions",
		Usage: "List the workflows that can be run",
		Action: func(_ context.Context, command *cli.Command) error {
			printDefinitions(command.Root().Writer, workflows.DefaultRegistry().Names())

			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a workflow",
		ArgsUsage: "<workflow>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Workflow input as JSON, or @path to read it from a file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "async, sync or direct",
				Value: "sync",
			},
			&cli.StringFlag{
				Name:  "workflow-id",
				Usage: "Workflow ID (generated when empty)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("%w: workflow name", errMissingArgument)
			}

			input, err := readInput(command.String("input"))
			if err != nil {
				return err
			}

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				out := command.Root().Writer
				workflowID := command.String("workflow-id")

				switch command.String("mode") {
				case "async":
					res, err := d.RunAsync(ctx, name, input, workflowID)
					if err != nil {
						return err
					}

					printRun(out, res.WorkflowID, res.RunID, res.Mode, res.Result)
				case "sync":
					res, err := d.RunSync(ctx, name, input, workflowID)
					if err != nil {
						return err
					}

					printRun(out, res.WorkflowID, res.RunID, res.Mode, &res.Result)
				case "direct":
					res, err := d.RunDirect(ctx, name, input, workflowID)
					if err != nil {
						return err
					}

					printRun(out, res.WorkflowID, res.RunID, res.Mode, &res.Result)
				default:
					return fmt.Errorf("unsupported mode %q", command.String("mode"))
				}

				return nil
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List workflow executions on the engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Temporal visibility query, e.g. WorkflowType='propertyPublishing'",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Value: 20,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				executions, err := d.List(ctx, command.String("query"), int32(command.Int("page-size")))
				if err != nil {
					return err
				}

				printExecutions(command.Root().Writer, executions)

				return nil
			})
		},
	}
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Show a workflow execution",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{runIDFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				desc, err := d.Describe(ctx, id, command.String("run-id"))
				if err != nil {
					return err
				}

				printDescription(command.Root().Writer, desc)

				return nil
			})
		},
	}
}

func resultCommand() *cli.Command {
	return &cli.Command{
		Name:      "result",
		Usage:     "Wait for a workflow execution and print its result",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			runIDFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Value: time.Minute,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, command.Duration("timeout"))
			defer cancel()

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				result, err := d.Result(ctx, id, command.String("run-id"))
				if err != nil {
					return err
				}

				printResult(command.Root().Writer, result)

				return nil
			})
		},
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:      "state",
		Usage:     "Print the current phase of a running workflow",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{runIDFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				state, err := d.Query(ctx, id, command.String("run-id"), workflows.CurrentStateQueryType)
				if err != nil {
					return err
				}

				fmt.Fprintln(command.Root().Writer, state)

				return nil
			})
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Request cancellation of a workflow execution",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{runIDFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				if err := d.Cancel(ctx, id, command.String("run-id")); err != nil {
					return err
				}

				printDone(command.Root().Writer, "cancellation requested for "+id)

				return nil
			})
		},
	}
}

func terminateCommand() *cli.Command {
	return &cli.Command{
		Name:      "terminate",
		Usage:     "Terminate a workflow execution",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			runIDFlag(),
			&cli.StringFlag{
				Name:  "reason",
				Value: "terminated by operator",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			return withDispatcher(ctx, command, func(d *dispatcher.Dispatcher) error {
				if err := d.Terminate(ctx, id, command.String("run-id"), command.String("reason")); err != nil {
					return err
				}

				printDone(command.Root().Writer, "terminated "+id)

				return nil
			})
		},
	}
}

// readInput parses raw as JSON, reading it from a file when prefixed with @.
func readInput(raw string) (models.WorkflowInput, error) {
	data := []byte(raw)

	if len(raw) > 1 && raw[0] == '@' {
		var err error

		data, err = os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
	}

	var input models.WorkflowInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}

	return input, nil
}
