// Package metrics holds the process Prometheus collectors and their HTTP listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teleform"

var (
	// Submissions counts submission attempts by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Submission attempts by outcome.",
	}, []string{"outcome"})

	// Transitions counts submission status changes.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submission_transitions_total",
		Help:      "Submission status transitions.",
	}, []string{"from", "to"})

	// DispatchFailures counts channel dispatches that failed after acceptance.
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_failures_total",
		Help:      "Channel dispatch failures.",
	})

	// FanoutDeliveries counts moderator deliveries by result.
	FanoutDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fanout_deliveries_total",
		Help:      "Moderator fan-out deliveries by result.",
	}, []string{"result"})

	// Updates counts inbound Telegram updates by kind.
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Inbound updates by kind.",
	}, []string{"kind"})

	// Replies counts messages the bot sent while handling an update.
	Replies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_total",
		Help:      "Messages sent in response to updates.",
	}, []string{"keyboard"})

	// HandlerDuration observes update handling time by handler.
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Update handling latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler"})
)

// Submission outcomes.
const (
	OutcomeCreated     = "created"
	OutcomeRejected    = "invalid"
	OutcomeForbidden   = "forbidden"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// RecordTransition counts one status move.
func RecordTransition(from, to string) {
	Transitions.WithLabelValues(from, to).Inc()
}

// RecordFanout counts one moderator delivery.
func RecordFanout(ok bool) {
	if ok {
		FanoutDeliveries.WithLabelValues("ok").Inc()
		return
	}
	FanoutDeliveries.WithLabelValues("fail").Inc()
}
