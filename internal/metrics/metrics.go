// Package metrics counts waypoint operations. A CLI invocation is too short
// lived to be scraped, so the registry is written to a node-exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one invocation
type Metrics struct {
	registry *prometheus.Registry

	// OperationsTotal counts operations by name and result
	OperationsTotal *prometheus.CounterVec

	// Bookmarks tracks the size of the bookmark table
	Bookmarks prometheus.Gauge

	// HistoryEntries tracks the length of the visit history
	HistoryEntries prometheus.Gauge

	// HistoryPosition tracks the current history pointer
	HistoryPosition prometheus.Gauge

	// OperationDuration tracks load, operate and save latency
	OperationDuration *prometheus.HistogramVec
}

// New creates collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_operations_total",
			Help: "Total number of waypoint operations by result",
		}, []string{"operation", "result"}), // result: "ok", "usage", "selection", "internal"
		Bookmarks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_bookmarks",
			Help: "Current number of bookmarks",
		}),
		HistoryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_history_entries",
			Help: "Current number of entries in the visit history",
		}),
		HistoryPosition: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_history_position",
			Help: "Index of the current history entry, -1 when empty",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_operation_duration_seconds",
			Help:    "Operation duration in seconds, including load and save",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}

// RecordOperation records the outcome of an operation
func (m *Metrics) RecordOperation(operation, result string, seconds float64) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// SetBookmarks records the bookmark table size
func (m *Metrics) SetBookmarks(n int) {
	m.Bookmarks.Set(float64(n))
}

// SetHistory records the history length and pointer
func (m *Metrics) SetHistory(length, position int) {
	m.HistoryEntries.Set(float64(length))
	m.HistoryPosition.Set(float64(position))
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
