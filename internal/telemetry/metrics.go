// Package telemetry owns the collector's Prometheus metrics. Runs are short
// lived, so metrics are pushed to a Pushgateway at the end of a run; Expose
// serves them for long-running receivers.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "duolog"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reg *prometheus.Registry

	runs       *prometheus.CounterVec
	emitted    *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	checkpoint *prometheus.GaugeVec
	duration   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_runs_total",
			Help:      "Stream invocations by final status.",
		}, []string{"stream", "status"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events confirmed by every sink.",
		}, []string{"stream"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records skipped because they could not be normalized.",
		}, []string{"stream"}),
		checkpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_timestamp_seconds",
			Help:      "Last persisted checkpoint per stream.",
		}, []string{"stream"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full collection run.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	m.reg.MustRegister(m.runs, m.emitted, m.dropped, m.checkpoint, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) StreamDone(stream, status string, emitted, dropped int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(stream, status).Inc()
	m.emitted.WithLabelValues(stream).Add(float64(emitted))
	m.dropped.WithLabelValues(stream).Add(float64(dropped))
}

func (m *Metrics) CheckpointSaved(stream string, ts int64) {
	if m == nil {
		return
	}
	m.checkpoint.WithLabelValues(stream).Set(float64(ts))
}

func (m *Metrics) RunFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// Push sends the registry to a Pushgateway, grouped by input name.
func (m *Metrics) Push(url, job, input string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	return push.New(url, job).
		Gatherer(m.reg).
		Grouping("input", input).
		Push()
}

// Expose serves gatherer on :port/metrics in the background.
func Expose(port int, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
