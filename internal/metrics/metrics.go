// Package metrics holds the Prometheus collectors exported by the daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHead = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "minotaur_chain_head",
		Help: "The latest full-block height reported by the node",
	}, []string{"network"})

	AddressHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "minotaur_address_height",
		Help: "The sync cursor of a tracked address",
	}, []string{"network", "address"})

	WindowsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_windows_applied_total",
		Help: "Height windows fetched and applied to storage",
	}, []string{"network"})

	TxsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_txs_applied_total",
		Help: "Transactions applied to storage",
	}, []string{"network"})

	ForkCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_fork_count",
		Help: "Total number of forks detected while syncing addresses",
	}, []string{"network"})

	HeaderReorgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_header_reorgs_total",
		Help: "Times the node reported a different header at an already stored height",
	}, []string{"network"})

	Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_rollbacks_total",
		Help: "Network state rewinds, by trigger (fork or headers)",
	}, []string{"network", "reason"})

	SyncErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_sync_errors_total",
		Help: "Failed address sync cycles, by error kind",
	}, []string{"network", "kind"})

	BalanceMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_balance_mismatches_total",
		Help: "Balance verifications where local and explorer totals differ",
	}, []string{"network"})

	ChainRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minotaur_chain_requests_total",
		Help: "Requests made to the node and explorer, by operation and outcome",
	}, []string{"op", "outcome"})

	ChainRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minotaur_chain_request_seconds",
		Help:    "Latency of single node and explorer request attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minotaur_sync_cycle_seconds",
		Help:    "Duration of one address sync cycle",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"network"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
