package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/fatih/color"
)

var (
	labelColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	modeColor    = color.New(color.FgCyan)
)

func printDefinitions(out io.Writer, names []string) {
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
}

func printRun(out io.Writer, workflowID, runID string, mode models.ExecutionMode, result *models.WorkflowResult) {
	fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("workflow:"), workflowID)

	if runID != "" {
		fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("run:"), runID)
	}

	fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("mode:"), modeColor.Sprint(mode))

	if result == nil {
		fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("state:"), "STARTED")

		return
	}

	printResult(out, *result)
}

func printResult(out io.Writer, result models.WorkflowResult) {
	state := failureColor.Sprint(result.State)
	if result.Success {
		state = successColor.Sprint(result.State)
	}

	fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("state:"), state)
	fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("message:"), result.Message)

	for _, problem := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", problem)
	}

	for key, value := range result.Data {
		fmt.Fprintf(out, "%s %v\n", labelColor.Sprint(key+":"), value)
	}
}

func printExecutions(out io.Writer, executions []engine.WorkflowDescription) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKFLOW ID\tTYPE\tSTATUS\tSTARTED")

	for _, execution := range executions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", execution.WorkflowID, execution.WorkflowType, execution.Status, formatTime(execution.StartTime))
	}

	_ = w.Flush()
}

func printDescription(out io.Writer, desc engine.WorkflowDescription) {
	rows := [][2]string{
		{"workflow", desc.WorkflowID},
		{"run", desc.RunID},
		{"type", desc.WorkflowType},
		{"status", desc.Status},
		{"task queue", desc.TaskQueue},
		{"started", formatTime(desc.StartTime)},
		{"closed", formatTime(desc.CloseTime)},
		{"history", fmt.Sprint(desc.HistoryLength)},
	}

	for _, row := range rows {
		fmt.Fprintf(out, "%s %s\n", labelColor.Sprint(strings.ReplaceAll(row[0], " ", "_")+":"), row[1])
	}
}

func printDone(out io.Writer, message string) {
	fmt.Fprintln(out, successColor.Sprint("ok"), message)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format(time.RFC3339)
}
