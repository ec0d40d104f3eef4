package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ncanimate/internal/logging"
	"ncanimate/internal/services"
)

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "scheduler").Info("rendering frames", logging.String("date_range", "a b"), logging.Int("count", 3))

	line := buf.String()
	if !strings.Contains(line, " INFO scheduler: rendering frames") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, `date_range="a b"`) || !strings.Contains(line, "count=3") {
		t.Fatalf("expected fields in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix only: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source at info level: %q", line)
	}
}

func TestConsoleHandlerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with source")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected source location, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("cleanup failed", logging.Error(errors.New("permission denied")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload["msg"] != "cleanup failed" {
		t.Fatalf("unexpected msg %v", payload["msg"])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFileOptionsWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	opts, err := logging.FileOptions("info", "console", dir, "gbr4")
	if err != nil {
		t.Fatalf("FileOptions: %v", err)
	}
	opts.OutputPaths = opts.OutputPaths[1:]
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello")
	data, err := os.ReadFile(filepath.Join(dir, "gbr4.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Writer: &buf})
	logging.WarnWithContext(logger, "delete failed", "frame_cleanup_failed", logging.String(logging.FieldImpact, "disk space not reclaimed"))
	line := buf.String()
	for _, want := range []string{"event_type=frame_cleanup_failed", "error_hint=", `impact="disk space not reclaimed"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Writer: &buf})
	ctx := services.WithProductID(services.WithRunID(context.Background(), "abc"), "gbr4_v2_temp")
	logging.WithContext(ctx, logger).Info("start")
	if !strings.Contains(buf.String(), "run_id=abc") || !strings.Contains(buf.String(), "product_id=gbr4_v2_temp") {
		t.Fatalf("expected context fields, got %q", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("nop logger should be disabled")
	}
}
