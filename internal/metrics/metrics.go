// Package metrics collects archiplane's Prometheus metrics. Grounded on
// the teacher's internal/infrastructure/observability/metrics.go: a
// singleton Collector holding its own registry, metrics created once and
// registered together, with accessor fields callers use directly rather
// than a name-based dispatch.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds every Prometheus metric archiplane exports.
type Collector struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Apply Engine (C4)
	ApplyChunkDuration *prometheus.HistogramVec
	ApplyChunksTotal   *prometheus.CounterVec
	ApplyChangesTotal  *prometheus.CounterVec

	// Operation Queue (C5)
	QueueDepth       prometheus.Gauge
	OperationsActive prometheus.Gauge

	// Layout Engine (C7)
	LayoutDuration *prometheus.HistogramVec

	// Diagnostics (C8)
	DiagnosticsFindings *prometheus.GaugeVec

	// Export (C9)
	ExportDuration *prometheus.HistogramVec
}

// NewCollector creates (or returns the existing) Collector for namespace.
// A singleton avoids duplicate-registration panics across tests that each
// construct their own server.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	applyChunkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_chunk_duration_seconds",
			Help:      "Time to execute one BOM chunk against the model.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	applyChunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_chunks_total",
			Help:      "Total number of BOM chunks executed, by outcome.",
		},
		[]string{"outcome"},
	)
	applyChangesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_changes_total",
			Help:      "Total number of individual BOM changes applied, by op and outcome.",
		},
		[]string{"op", "outcome"},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_queue_depth",
			Help:      "Number of operations currently queued or processing.",
		},
	)
	operationsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_active",
			Help:      "Number of operations currently executing.",
		},
	)
	layoutDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time to run the layout algorithm over one view.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)
	diagnosticsFindings := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "diagnostics_findings",
			Help:      "Number of findings from the most recent diagnostics sweep, by kind.",
		},
		[]string{"kind"},
	)
	exportDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time to rasterize and encode one view export.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		applyChunkDuration,
		applyChunksTotal,
		applyChangesTotal,
		queueDepth,
		operationsActive,
		layoutDuration,
		diagnosticsFindings,
		exportDuration,
	)

	globalCollector = &Collector{
		registry:            registry,
		HTTPRequests:        httpRequests,
		HTTPDuration:        httpDuration,
		ApplyChunkDuration:  applyChunkDuration,
		ApplyChunksTotal:    applyChunksTotal,
		ApplyChangesTotal:   applyChangesTotal,
		QueueDepth:          queueDepth,
		OperationsActive:    operationsActive,
		LayoutDuration:      layoutDuration,
		DiagnosticsFindings: diagnosticsFindings,
		ExportDuration:      exportDuration,
	}
	return globalCollector
}

// ResetForTesting drops the singleton so a subsequent NewCollector call
// builds a fresh registry. Tests that construct more than one server in
// the same process need this to avoid prometheus' duplicate-registration
// panic.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// Registry returns the Prometheus registry backing this collector, for
// mounting a /metrics handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
