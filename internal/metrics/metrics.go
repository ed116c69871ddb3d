package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// TransactionsTotal counts successfully committed ledger rows by type.
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Total successful transactions",
		},
		[]string{"type"}, // CREDIT|DEBIT|TRANSFER
	)
	TransactionsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_failed_total",
			Help: "Total failed transactions recorded in the ledger",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	// WarehouseWatermark tracks the highest ledger id exported downstream.
	WarehouseWatermark = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warehouse_watermark_id",
			Help: "Highest transaction log id exported to the warehouse",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsFailed)
	prometheus.MustRegister(WorkerQueueDepth)
	prometheus.MustRegister(WarehouseWatermark)
}
