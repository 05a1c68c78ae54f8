// Package observability provides Prometheus instrumentation for the
// editor core. Collectors are registered against an explicit registry so
// embedding applications and tests control exposure.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the core emits
type Metrics struct {
	MutationsApplied *prometheus.CounterVec
	MutationRejected *prometheus.CounterVec

	UndoTotal        prometheus.Counter
	RedoTotal        prometheus.Counter
	HistoryDepth     prometheus.Gauge
	HistoryEvictions prometheus.Counter

	FlushTotal    prometheus.Counter
	FlushFailures prometheus.Counter
	PendingWrites prometheus.Gauge

	EventsRouted *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors with the given registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MutationsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "canvas_mutations_applied_total",
			Help: "Graph mutations successfully applied, by kind",
		}, []string{"kind"}),
		MutationRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "canvas_mutations_rejected_total",
			Help: "Graph mutations rejected by invariant checks, by kind",
		}, []string{"kind"}),

		UndoTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "canvas_undo_total",
			Help: "Undo operations performed",
		}),
		RedoTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "canvas_redo_total",
			Help: "Redo operations performed",
		}),
		HistoryDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "canvas_history_depth",
			Help: "Current number of undoable entries",
		}),
		HistoryEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "canvas_history_evictions_total",
			Help: "History entries aged out of the undo stack",
		}),

		FlushTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "canvas_flush_total",
			Help: "Persistence flush batches committed",
		}),
		FlushFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "canvas_flush_failures_total",
			Help: "Persistence flush batches that failed and were retained for retry",
		}),
		PendingWrites: factory.NewGauge(prometheus.GaugeOpts{
			Name: "canvas_pending_writes",
			Help: "Entities currently waiting in the pending set",
		}),

		EventsRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "canvas_events_routed_total",
			Help: "Pointer events dispatched, by resolved target",
		}, []string{"target"}),
	}
}

// NewNopMetrics creates collectors on a private registry, for tests and
// embedders that do not scrape
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
