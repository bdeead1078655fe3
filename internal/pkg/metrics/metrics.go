// Package metrics defines and registers all custom Prometheus metrics for the
// card ledger API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

const namespace = "cards"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LedgerOperationsTotal counts ledger engine calls.
// Labels:
//   - operation: "create_card", "change_status", "top_up", "admin_top_up", "transfer", "delete_card", "reveal_pan"
//   - result: "ok" or the error kind (see ResultLabel)
var LedgerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Total number of ledger operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// LedgerOperationDuration measures a ledger call including its transaction.
var LedgerOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_operation_duration_seconds",
		Help:      "Duration of ledger operations from call to commit or rejection.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Audit journal metrics ─────────────────────────────────────────────────────

// AuditEventsTotal counts journal writes.
// Labels:
//   - type: ledger event type (e.g. "transferred")
//   - result: "ok" or "error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of ledger events written to the audit journal.",
	},
	[]string{"type", "result"},
)

// AuditQueueDepth tracks the number of events waiting in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of ledger events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Card metrics ──────────────────────────────────────────────────────────────

// CardsByStatus is refreshed periodically by the card stats job.
var CardsByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cards_by_status",
		Help:      "Number of stored cards, by status.",
	},
	[]string{"status"},
)

// IdempotencyReplaysTotal counts responses served from the idempotency store.
var IdempotencyReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_replays_total",
		Help:      "Total number of requests answered from a stored idempotent response.",
	},
)

// ResultLabel maps an error to its low-cardinality metric label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrCryptoFailure):
		return "crypto_failure"
	default:
		return "error"
	}
}
