// Package metrics defines all custom Prometheus metrics for the procurement
// tracker. It is the single source of truth for metric names, labels, and
// help strings; registration happens at import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "procurement"

// ── Identifier allocation ─────────────────────────────────────────────────────

// AllocationsReservedTotal counts identifiers handed out as reservations.
var AllocationsReservedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_reserved_total",
		Help:      "Total number of identifier reservations handed out.",
	},
)

// AllocationsRecordedTotal counts identifiers durably committed. Reserved
// minus recorded approximates the gap rate.
var AllocationsRecordedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_recorded_total",
		Help:      "Total number of identifiers durably recorded.",
	},
)

// AllocationsExhaustedTotal counts allocation attempts refused because the
// month's 999-number space was used up.
var AllocationsExhaustedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_exhausted_total",
		Help:      "Total number of allocations refused due to monthly exhaustion.",
	},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// SessionsCreatedTotal counts sessions minted by successful logins.
var SessionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total number of sessions created.",
	},
)

// SessionCacheTotal counts session validations by tier outcome.
// Label:
//   - result: "hit" (served from cache) or "miss" (durable fallback)
var SessionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_total",
		Help:      "Session validations by cache outcome (hit/miss).",
	},
	[]string{"result"},
)

// SessionsSweptTotal counts deactivated session rows removed by the sweep job.
var SessionsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total number of deactivated session rows removed by cleanup.",
	},
)

// ── Purchase requests ─────────────────────────────────────────────────────────

// RequestsSubmittedTotal counts committed submissions, by site.
var RequestsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_submitted_total",
		Help:      "Total number of purchase requests submitted, by site.",
	},
	[]string{"site"},
)

// RequestTransitionsTotal counts workflow transitions, by resulting status.
var RequestTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_transitions_total",
		Help:      "Total number of workflow transitions applied, by new status.",
	},
	[]string{"status"},
)

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationsTotal counts asynchronous notification deliveries.
// Label:
//   - result: "sent" or "failed" (failures are logged and dropped)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification deliveries, by result.",
	},
	[]string{"result"},
)
