package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ncanimate/internal/metrics"
)

func TestWriteTextfile(t *testing.T) {
	m := metrics.New("products__temp")
	m.IncRenderAttempts()
	m.IncRenderAttempts()
	m.OutputGenerated("map")
	m.OutputFailed("video", "missing_frames")
	m.AddFramesReclaimed(12)
	m.SetPendingOutputs(1)
	m.Finish(90*time.Second, false, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "textfile", "ncanimate.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`ncanimate_render_attempts_total{product="products__temp"} 2`,
		`ncanimate_outputs_generated_total{kind="map",product="products__temp"} 1`,
		`ncanimate_outputs_failed_total{kind="video",product="products__temp",reason="missing_frames"} 1`,
		`ncanimate_frames_reclaimed_total{product="products__temp"} 12`,
		`ncanimate_last_run_success{product="products__temp"} 0`,
		`ncanimate_run_duration_seconds{product="products__temp"} 90`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.IncRenderAttempts()
	m.OutputGenerated("map")
	m.Finish(time.Second, true, time.Now())
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}
