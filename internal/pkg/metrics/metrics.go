// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Account metrics ───────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts that reached a decision.
// Label:
//   - result: "created", "conflict", or "invalid_role"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of account registrations, by result.",
	},
	[]string{"result"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts authentication attempts.
// Label:
//   - result: "success", "invalid_credentials", "account_disabled", or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SessionsEvictedTotal counts sessions replaced by a newer login of the same account.
var SessionsEvictedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Total number of sessions evicted by a subsequent login.",
	},
)

// AuthorizationDeniedTotal counts requests rejected by the route guard.
// Label:
//   - reason: "unauthenticated" or "forbidden"
var AuthorizationDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denied_total",
		Help:      "Total number of requests denied by the authorization guard.",
	},
	[]string{"reason"},
)

// ── Password reset metrics ────────────────────────────────────────────────────

// ResetRequestsTotal counts password reset requests.
// Label:
//   - result: "issued", "unknown_email", or "failed"
var ResetRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reset_requests_total",
		Help:      "Total number of password reset requests, by result.",
	},
	[]string{"result"},
)

// ResetConfirmationsTotal counts password reset confirmations.
// Label:
//   - result: "completed", "not_found", "used", "expired", or "failed"
var ResetConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reset_confirmations_total",
		Help:      "Total number of password reset confirmations, by result.",
	},
	[]string{"result"},
)

// MailDeliveryDuration measures how long the mail transport takes to accept a message.
// Label:
//   - result: "sent" or "error"
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of password reset mail hand-off to the transport.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"result"},
)
