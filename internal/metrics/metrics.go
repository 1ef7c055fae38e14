package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails accepted by the mail transport",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total per-recipient transport failures",
		},
	)

	JobsAcknowledged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_acknowledged_total",
			Help: "Total jobs completed and removed from the queue",
		},
	)

	JobsRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_retried_total",
			Help: "Total jobs re-queued after a failure",
		},
	)

	JobsDead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_dead_total",
			Help: "Total jobs moved to the dead list after exhausting retries",
		},
	)

	QueuePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_pending",
			Help: "Jobs waiting in the pending list",
		},
	)

	QueueInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_in_flight",
			Help: "Jobs claimed by a worker and not yet acknowledged",
		},
	)

	QueueDead = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_dead",
			Help: "Jobs in the dead list awaiting operator action",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		EmailsSent,
		EmailFailures,
		JobsAcknowledged,
		JobsRetried,
		JobsDead,
		QueuePending,
		QueueInFlight,
		QueueDead,
	)
}
