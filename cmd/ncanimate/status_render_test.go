package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ncanimate/internal/catalog"
	"ncanimate/internal/daterange"
	"ncanimate/internal/deps"
	"ncanimate/internal/jobrun"
	"ncanimate/internal/maintenance"
	"ncanimate/internal/scheduler"
	"ncanimate/internal/timetable"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Worker", statusWarn, "slow", false)
	if !strings.Contains(plain, "Worker:") || !strings.HasSuffix(plain, "[WARN] slow") {
		t.Fatalf("unexpected line %q", plain)
	}
	colored := renderStatusLine("Worker", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestDependencyLinesReportsMissing(t *testing.T) {
	lines := dependencyLines([]deps.Status{
		{Name: "ffmpeg", Command: "ffmpeg", Available: true},
		{Name: "convert", Command: "convert", Optional: true},
		{Name: "java", Command: "java", Detail: "binary \"java\" not found"},
	}, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[1], "[WARN] not available") {
		t.Fatalf("optional tool should warn: %q", lines[1])
	}
	if !strings.Contains(lines[3], "Missing dependencies") || !strings.Contains(lines[3], "java") || strings.Contains(lines[3], "convert") {
		t.Fatalf("unexpected missing line %q", lines[3])
	}
}

func TestResultLinesForMaintenance(t *testing.T) {
	result := jobrun.Result{Maintenance: &maintenance.Counts{Scanned: 3, Deleted: 1}}
	lines := resultLines(result, nil, false)
	if len(lines) != 1 || !strings.Contains(lines[0], "[OK]") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestResultLinesListFailures(t *testing.T) {
	start := time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)
	summary := scheduler.Summary{
		ProductID: "p",
		Region:    "qld",
		Generated: []scheduler.Generated{{Files: 1}},
		Failed: []scheduler.Failure{{
			Output: timetable.Output{ID: "p_map_qld_2010-09-01", Kind: catalog.KindMap, Range: daterange.New(start, start.Add(time.Hour))},
			Reason: "missing_frames",
		}},
	}
	lines := resultLines(jobrun.Result{Summary: &summary}, errors.New("incomplete"), false)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"p (qld)", "1 generated", "1 failed", "p_map_qld_2010-09-01", "missing_frames"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "Run:") {
		t.Fatalf("failure summary should not repeat the run error:\n%s", joined)
	}
}

func TestResultLinesWithoutSummary(t *testing.T) {
	lines := resultLines(jobrun.Result{}, errors.New("boom"), false)
	if len(lines) != 1 || !strings.Contains(lines[0], "Run:") {
		t.Fatalf("unexpected lines %v", lines)
	}
}
