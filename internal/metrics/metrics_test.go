package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	// Touch every collector so Gather sees them.
	NotificationsEnqueuedTotal.Inc()
	DeliveriesTotal.WithLabelValues("sent").Inc()
	RecipientSendsTotal.WithLabelValues("ok").Inc()
	EventsIgnoredTotal.WithLabelValues("duplicate").Inc()
	PendingJobs.Set(3)
	FeedBacklogDepth.Set(12)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"taskpulse_notifications_enqueued_total": false,
		"taskpulse_deliveries_total":             false,
		"taskpulse_recipient_sends_total":        false,
		"taskpulse_events_ignored_total":         false,
		"taskpulse_pending_jobs":                 false,
		"taskpulse_feed_backlog_depth":           false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not gathered", name)
		}
	}
}
