// Package obs provides Prometheus metrics for the ledger core.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MovementsApplied counts ledger movements durably written, by source type.
	MovementsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowvault_movements_applied_total",
			Help: "Ledger movements durably written.",
		},
		[]string{"source_type"},
	)

	// BatchesTotal counts atomic apply units by outcome.
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowvault_apply_batches_total",
			Help: "Atomic apply units by outcome (committed, failed, noop).",
		},
		[]string{"outcome"},
	)

	// ContentionRetries counts optimistic-concurrency retries.
	ContentionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowvault_contention_retries_total",
			Help: "Optimistic concurrency retries of atomic applies.",
		},
	)

	// CortesTotal counts reconciliation snapshots created.
	CortesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowvault_cortes_total",
			Help: "Reconciliation snapshots created.",
		},
	)

	// CorteDiscrepancies counts cortes recorded with a non-zero discrepancy.
	CorteDiscrepancies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowvault_corte_discrepancies_total",
			Help: "Cortes recorded with a non-zero discrepancy.",
		},
	)

	// DriftDetected counts verification sweeps that found a cached balance
	// out of sync with the refolded ledger.
	DriftDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowvault_balance_drift_total",
			Help: "Accounts found with a cached balance out of sync with the ledger.",
		},
	)

	// AccountBalance reports the cached balance per account, refreshed by the
	// reconciler sweep.
	AccountBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowvault_account_balance",
			Help: "Cached account balance at the last verification sweep.",
		},
		[]string{"code", "currency"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
