package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run and child lifecycle metrics on a prometheus.Registerer.
type Metrics struct {
	tests            *prometheus.CounterVec
	sourcesCompleted *prometheus.CounterVec
	loadFailures     *prometheus.CounterVec
	connectDuration  prometheus.Histogram
	runDuration      prometheus.Histogram
	activeSources    prometheus.Gauge

	mu       sync.Mutex
	runStart time.Time
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suitemux_tests_total",
				Help: "Tests relayed on the merged stream, by source label and outcome",
			},
			[]string{"source", "outcome"},
		),
		sourcesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suitemux_sources_completed_total",
				Help: "Children that reached a terminal state",
			},
			[]string{"state"},
		),
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suitemux_source_load_failures_total",
				Help: "Children that never connected, by failure kind",
			},
			[]string{"kind"},
		),
		connectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "suitemux_source_connect_seconds",
				Help:    "Time from loading a child to its readiness signal",
				Buckets: prometheus.DefBuckets,
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "suitemux_run_duration_seconds",
				Help:    "Duration of merged runs",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		activeSources: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "suitemux_active_sources",
				Help: "Children currently loading or running",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.tests, m.sourcesCompleted, m.loadFailures,
		m.connectDuration, m.runDuration, m.activeSources,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSourceLoading: func(ctx context.Context, e *domain.SourceEvent) {
			m.activeSources.Inc()
		},
		OnSourceConnected: func(ctx context.Context, e *domain.SourceEvent) {
			m.connectDuration.Observe(e.Elapsed.Seconds())
		},
		OnSourceCompleted: func(ctx context.Context, e *domain.SourceEvent) {
			m.activeSources.Dec()
			m.sourcesCompleted.WithLabelValues(string(e.State)).Inc()
			if kind := FailureKind(e.Err); kind != "" {
				m.loadFailures.WithLabelValues(kind).Inc()
			}
		},
		OnEvent: m.observe,
	}
}

func (m *Metrics) observe(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventRunBegin:
		m.mu.Lock()
		m.runStart = ev.Timestamp
		m.mu.Unlock()
	case domain.EventRunEnd:
		m.mu.Lock()
		start := m.runStart
		m.mu.Unlock()
		if !start.IsZero() {
			m.runDuration.Observe(ev.Timestamp.Sub(start).Seconds())
		}
	case domain.EventTestPass:
		m.tests.WithLabelValues(sourceLabel(ev), "passed").Inc()
	case domain.EventTestFail:
		m.tests.WithLabelValues(sourceLabel(ev), "failed").Inc()
	case domain.EventTestPending:
		m.tests.WithLabelValues(sourceLabel(ev), "pending").Inc()
	}
}

func sourceLabel(ev domain.Event) string {
	if ev.Label != "" {
		return ev.Label
	}
	return "local"
}

// FailureKind classifies a load error as "timeout" or "load_failure".
// It returns "" for any other error.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrLoadTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrLoadFailure):
		return "load_failure"
	default:
		return ""
	}
}
