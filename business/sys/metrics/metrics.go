// Package metrics constructs the metrics the application will track.
package metrics

import (
	"strconv"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "servicechain"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total requests that returned an error.",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panics_total",
		Help:      "Total requests that panicked.",
	})
)

// AddRequest records a completed request.
func AddRequest(method string, path string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// AddError records a request that returned an error.
func AddError() {
	errorsTotal.Inc()
}

// AddPanic records a request that panicked.
func AddPanic() {
	panicsTotal.Inc()
}

// =============================================================================

// Ledger represents the ledger behavior required to report metrics.
type Ledger interface {
	Status() state.Status
	RetrieveSealing() state.Sealing
}

// LedgerCollector reads the ledger on every scrape.
type LedgerCollector struct {
	ledger Ledger

	blocks       *prometheus.Desc
	pending      *prometheus.Desc
	valid        *prometheus.Desc
	sealed       *prometheus.Desc
	failed       *prometheus.Desc
	lastDuration *prometheus.Desc
	sealSeconds  *prometheus.Desc
}

// NewLedgerCollector constructs a collector for the ledger.
func NewLedgerCollector(ledger Ledger) *LedgerCollector {
	desc := func(name string, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "ledger", name), help, nil, nil)
	}

	return &LedgerCollector{
		ledger:       ledger,
		blocks:       desc("blocks", "Number of sealed blocks including genesis."),
		pending:      desc("pending_transactions", "Number of transactions waiting to be sealed."),
		valid:        desc("chain_valid", "1 when the chain passes validation."),
		sealed:       desc("sealed_blocks_total", "Blocks sealed since start."),
		failed:       desc("seal_failures_total", "Seals cancelled or failed since start."),
		lastDuration: desc("last_seal_duration_seconds", "Duration of the last successful seal."),
		sealSeconds:  desc("seal_seconds_total", "Time spent sealing blocks since start."),
	}
}

// Describe implements the prometheus.Collector interface.
func (lc *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- lc.blocks
	ch <- lc.pending
	ch <- lc.valid
	ch <- lc.sealed
	ch <- lc.failed
	ch <- lc.lastDuration
	ch <- lc.sealSeconds
}

// Collect implements the prometheus.Collector interface.
func (lc *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	status := lc.ledger.Status()
	sealing := lc.ledger.RetrieveSealing()

	var valid float64
	if status.IsChainValid {
		valid = 1
	}

	ch <- prometheus.MustNewConstMetric(lc.blocks, prometheus.GaugeValue, float64(status.TotalBlocks))
	ch <- prometheus.MustNewConstMetric(lc.pending, prometheus.GaugeValue, float64(status.PendingTransactions))
	ch <- prometheus.MustNewConstMetric(lc.valid, prometheus.GaugeValue, valid)
	ch <- prometheus.MustNewConstMetric(lc.sealed, prometheus.CounterValue, float64(sealing.Sealed))
	ch <- prometheus.MustNewConstMetric(lc.failed, prometheus.CounterValue, float64(sealing.Failed))
	ch <- prometheus.MustNewConstMetric(lc.lastDuration, prometheus.GaugeValue, sealing.LastDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(lc.sealSeconds, prometheus.CounterValue, sealing.Total.Seconds())
}
