package main

import (
	"fmt"
	"strings"
	"time"

	"ncanimate/internal/jobrun"
	"ncanimate/internal/scheduler"
	"ncanimate/internal/services"
)

// resultLines describes a finished job for the terminal: maintenance counts,
// or a generation summary followed by a table of failed outputs.
func resultLines(result jobrun.Result, runErr error, colorize bool) []string {
	var lines []string
	switch {
	case result.Maintenance != nil:
		kind := statusOK
		if runErr != nil {
			kind = statusError
		}
		lines = append(lines, renderStatusLine("Maintenance", kind, result.Maintenance.String(), colorize))
	case result.Summary != nil:
		lines = append(lines, summaryLines(*result.Summary, colorize)...)
	}
	if runErr != nil && (result.Summary == nil || result.Summary.Succeeded()) {
		lines = append(lines, renderStatusLine("Run", statusError, services.Classify(runErr), colorize))
	}
	return lines
}

func summaryLines(summary scheduler.Summary, colorize bool) []string {
	kind := statusOK
	if !summary.Succeeded() {
		kind = statusError
	}
	label := summary.ProductID
	if summary.Region != "" {
		label += " (" + summary.Region + ")"
	}
	message := fmt.Sprintf("%d generated, %d up to date, %d failed, %d frames reclaimed in %s",
		len(summary.Generated), summary.UpToDate, len(summary.Failed), summary.FramesReclaimed, summary.Elapsed.Round(time.Millisecond))
	lines := []string{renderStatusLine(label, kind, message, colorize)}
	if summary.Succeeded() {
		return lines
	}
	return append(lines, strings.Split(failureTable(summary.Failed), "\n")...)
}

func failureTable(failures []scheduler.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{string(f.Output.Kind), f.Output.ID, f.Output.Range.String(), f.Reason})
	}
	return renderTable(tableSpec{
		title:   "Outputs not generated",
		headers: []string{"Kind", "Output", "Range", "Reason"},
		rows:    rows,
	})
}
