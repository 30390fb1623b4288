package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_events_ingested",
	Help: "Validated events applied to reconciler state",
}, []string{"kind"})

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_events_dropped",
	Help: "Raw frames rejected by the decoder",
}, []string{"reason"})

var reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_reconcile_runs",
	Help: "Reconcile runs by outcome",
}, []string{"outcome"})

var snapshotRows = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "leaguecalc_snapshot_rows",
	Help: "Currency rows in the last written snapshot",
})

const (
	outcomeWritten = "written"
	outcomeAborted = "aborted"
	outcomeFailed  = "failed"
)

func RecordEventIngested(kind string) {
	eventsIngested.WithLabelValues(kind).Inc()
}

func RecordEventDropped(reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
}

func RecordReconcile(outcome string) {
	reconcileRuns.WithLabelValues(outcome).Inc()
}

func RecordSnapshotRows(rows int) {
	snapshotRows.Set(float64(rows))
}
