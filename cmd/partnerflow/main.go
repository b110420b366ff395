// Package main is the partnerflow operator CLI.
package main

import (
	"context"
	"os"

	"github.com/estatedesk/partnerflow/pkg/cmd"
	"github.com/fatih/color"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "partnerflow",
		Usage:                 "Run and inspect publishing and onboarding workflows",
		EnableShellCompletion: true,
		Flags:                 cmd.ConfigFlags(),
		Commands: []*cli.Command{
			definitionsCommand(),
			runCommand(),
			listCommand(),
			describeCommand(),
			resultCommand(),
			stateCommand(),
			cancelCommand(),
			terminateCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
