// Package metrics holds the Prometheus collectors for the approval tool.
//
//   - approver_orders_total{side,result}          placement attempts (result: placed|failed)
//   - approver_finalize_skipped_total{reason}     rows dropped during finalization
//   - approver_session_restore_total{result}      cached session restores (result: restored|cleared)
//   - approver_batch_size                         placements per submitted batch
//
// Collectors are registered in init() and served by Handler at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scanner-approval/internal/types"
)

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approver_orders_total",
			Help: "Limit order placement attempts",
		},
		[]string{"side", "result"},
	)

	mtxSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approver_finalize_skipped_total",
			Help: "Rows dropped by the order finalizer",
		},
		[]string{"reason"},
	)

	mtxRestore = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approver_session_restore_total",
			Help: "Cached session restore outcomes",
		},
		[]string{"result"},
	)

	mtxBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "approver_batch_size",
			Help:    "Placements attempted per submitted batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxSkipped, mtxRestore, mtxBatchSize)
}

// ObserveOrder counts one placement attempt.
func ObserveOrder(side types.Side, err error) {
	result := "placed"
	if err != nil {
		result = "failed"
	}
	mtxOrders.WithLabelValues(string(side), result).Inc()
}

func IncSkipped(reason string)        { mtxSkipped.WithLabelValues(reason).Inc() }
func IncRestore(result string)        { mtxRestore.WithLabelValues(result).Inc() }
func ObserveBatchSize(placements int) { mtxBatchSize.Observe(float64(placements)) }

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
