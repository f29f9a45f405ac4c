package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	NotificationsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpulse_notifications_enqueued_total",
			Help: "Total number of delivery jobs enqueued.",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_deliveries_total",
			Help: "Total number of job delivery attempts by outcome.",
		},
		[]string{"outcome"}, // sent, retry_scheduled, failed
	)

	RecipientSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_recipient_sends_total",
			Help: "Total number of per-recipient send attempts by result.",
		},
		[]string{"result"}, // ok, error
	)

	EventsIgnoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_events_ignored_total",
			Help: "Total number of change events abandoned by reason.",
		},
		[]string{"reason"}, // unchanged, ineligible, duplicate, missing_data, invalid_input, no_recipients
	)

	PendingJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpulse_pending_jobs",
			Help: "Number of jobs currently pending in the delivery queue.",
		},
	)

	FeedBacklogDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpulse_feed_backlog_depth",
			Help: "Depth of the change-feed topic backlog.",
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		NotificationsEnqueuedTotal,
		DeliveriesTotal,
		RecipientSendsTotal,
		EventsIgnoredTotal,
		PendingJobs,
		FeedBacklogDepth,
	)
}
