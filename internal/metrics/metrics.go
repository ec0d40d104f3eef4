package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and gauges of one generation run. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	renderAttempts  prometheus.Counter
	renderedRanges  prometheus.Counter
	outputsDone     *prometheus.CounterVec
	outputsFailed   *prometheus.CounterVec
	framesReclaimed prometheus.Counter
	pendingOutputs  prometheus.Gauge
	runDuration     prometheus.Gauge
	lastRunSuccess  prometheus.Gauge
	lastRunTime     prometheus.Gauge
}

// New creates and registers the run metrics. Every series carries the
// product label so textfiles of several products can share a directory.
func New(productID string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"product": productID}

	m := &Metrics{
		registry: registry,
		renderAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ncanimate_render_attempts_total",
			Help:        "Frame worker invocations",
			ConstLabels: labels,
		}),
		renderedRanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ncanimate_rendered_ranges_total",
			Help:        "Date ranges whose frames were rendered successfully",
			ConstLabels: labels,
		}),
		outputsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ncanimate_outputs_generated_total",
			Help:        "Maps and videos generated",
			ConstLabels: labels,
		}, []string{"kind"}),
		outputsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ncanimate_outputs_failed_total",
			Help:        "Maps and videos that could not be generated",
			ConstLabels: labels,
		}, []string{"kind", "reason"}),
		framesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ncanimate_frames_reclaimed_total",
			Help:        "Frame files deleted once no pending output needed them",
			ConstLabels: labels,
		}),
		pendingOutputs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ncanimate_pending_outputs",
			Help:        "Outdated outputs not yet generated",
			ConstLabels: labels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ncanimate_run_duration_seconds",
			Help:        "Wall time of the last run",
			ConstLabels: labels,
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ncanimate_last_run_success",
			Help:        "1 when the last run generated every outdated output",
			ConstLabels: labels,
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ncanimate_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: labels,
		}),
	}
	registry.MustRegister(
		m.renderAttempts,
		m.renderedRanges,
		m.outputsDone,
		m.outputsFailed,
		m.framesReclaimed,
		m.pendingOutputs,
		m.runDuration,
		m.lastRunSuccess,
		m.lastRunTime,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncRenderAttempts() {
	if m != nil {
		m.renderAttempts.Inc()
	}
}

func (m *Metrics) IncRenderedRanges() {
	if m != nil {
		m.renderedRanges.Inc()
	}
}

// OutputGenerated counts a finished output of kind.
func (m *Metrics) OutputGenerated(kind string) {
	if m != nil {
		m.outputsDone.WithLabelValues(kind).Inc()
	}
}

// OutputFailed counts an output that failed for reason.
func (m *Metrics) OutputFailed(kind, reason string) {
	if m != nil {
		m.outputsFailed.WithLabelValues(kind, reason).Inc()
	}
}

func (m *Metrics) AddFramesReclaimed(n int) {
	if m != nil && n > 0 {
		m.framesReclaimed.Add(float64(n))
	}
}

func (m *Metrics) SetPendingOutputs(n int) {
	if m != nil {
		m.pendingOutputs.Set(float64(n))
	}
}

// Finish records the run duration and outcome.
func (m *Metrics) Finish(elapsed time.Duration, success bool, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Set(elapsed.Seconds())
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.lastRunTime.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
