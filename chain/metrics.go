package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction statuses used as metric labels
const (
	StatusSuccess  = "success"
	StatusReverted = "reverted"
	StatusRejected = "rejected"
)

type metrics struct {
	transactions *prometheus.CounterVec
	deployments  *prometheus.CounterVec
	blockHeight  prometheus.Gauge
	txDuration   *prometheus.HistogramVec
}

// newMetrics registers chain metrics on reg; a nil reg leaves them unregistered
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenfarm_chain_transactions_total",
				Help: "Total number of transactions by contract, method and status",
			},
			[]string{"contract", "method", "status"},
		),
		deployments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenfarm_chain_deployments_total",
				Help: "Total number of contract deployments by contract",
			},
			[]string{"contract"},
		),
		blockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenfarm_chain_block_height",
				Help: "Current block number of the dev chain",
			},
		),
		txDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenfarm_chain_transaction_duration_seconds",
				Help:    "Transaction execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}
