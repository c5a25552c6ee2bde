package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// disruption simulation loop.
type Metrics struct {
	EventsProcessed prometheus.Counter
	EventErrors     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-event simulation metrics.
	ThresholdsEvaluated  prometheus.Counter
	EdgesFailed          prometheus.Histogram
	EventDuration        prometheus.Histogram
	AllocationComponents prometheus.Histogram
}

// NewMetrics creates and registers all simulation metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_disruption",
			Name:      "events_processed_total",
			Help:      "Total storm events simulated to completion.",
		}),
		EventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_disruption",
			Name:      "event_errors_total",
			Help:      "Total storm events abandoned due to errors.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "grid_disruption",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		ThresholdsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_disruption",
			Name:      "thresholds_evaluated_total",
			Help:      "Total failure thresholds swept across all events.",
		}),
		EdgesFailed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_disruption",
			Name:      "edges_failed",
			Help:      "Failed edge count per evaluated threshold.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		EventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_disruption",
			Name:      "event_duration_seconds",
			Help:      "Duration of a complete per-event degradation sweep.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		AllocationComponents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_disruption",
			Name:      "allocation_components",
			Help:      "Connected component count of the surviving subgraph.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}

	prometheus.MustRegister(
		m.EventsProcessed,
		m.EventErrors,
		m.PipelineRunning,
		m.ThresholdsEvaluated,
		m.EdgesFailed,
		m.EventDuration,
		m.AllocationComponents,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EventsProcessed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_disruption", Name: "events_processed_total"}),
		EventErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_disruption", Name: "event_errors_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "grid_disruption", Name: "pipeline_running"}),
		ThresholdsEvaluated:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "grid_disruption", Name: "thresholds_evaluated_total"}),
		EdgesFailed:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_disruption", Name: "edges_failed"}),
		EventDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_disruption", Name: "event_duration_seconds"}),
		AllocationComponents: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "grid_disruption", Name: "allocation_components"}),
	}
}
