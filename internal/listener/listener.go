package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/austindbirch/taskpulse/internal/feed"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/metrics"
	"github.com/austindbirch/taskpulse/internal/queue"
	"github.com/austindbirch/taskpulse/internal/store"
	"github.com/austindbirch/taskpulse/internal/template"
	"github.com/austindbirch/taskpulse/internal/tracing"
)

// notifiable is the whitelist of statuses worth notifying about. An event is
// eligible when both its old and new status are members independently.
var notifiable = map[string]struct{}{
	template.StatusAssigned:       {},
	template.StatusInProgress:     {},
	template.StatusWaitingConfirm: {},
	template.StatusApproved:       {},
	template.StatusRejected:       {},
	template.StatusDone:           {},
}

// dedupRetention is how long processed transitions stay in the dedup map
// before the prune tick drops them
const dedupRetention = time.Hour

// Config tunes the listener
type Config struct {
	BaseURL       string        // deep-link base URL
	DedupWindow   time.Duration // repeats inside this window are dropped
	PruneInterval time.Duration // dedup map prune cadence
}

func (c Config) withDefaults() Config {
	if c.DedupWindow <= 0 {
		c.DedupWindow = 5 * time.Minute
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = 10 * time.Minute
	}
	return c
}

// Listener watches the change feed and turns eligible status transitions
// into delivery jobs.
type Listener struct {
	feed  feed.ChangeFeed
	store store.EntityStore
	queue *queue.Queue
	log   *logging.Logger
	cfg   Config

	mu     sync.Mutex
	seen   map[string]time.Time
	active bool
	stopCh chan struct{}
	wg     sync.WaitGroup

	now func() time.Time
}

func New(f feed.ChangeFeed, st store.EntityStore, q *queue.Queue, log *logging.Logger, cfg Config) *Listener {
	return &Listener{
		feed:  f,
		store: st,
		queue: q,
		log:   log,
		cfg:   cfg.withDefaults(),
		seen:  make(map[string]time.Time),
		now:   time.Now,
	}
}

// Start subscribes to the change feed and starts the dedup prune ticker.
// Starting an active listener is a no-op with a logged warning.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		l.log.Plain().Warn("listener already started")
		return nil
	}
	l.active = true
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	if err := l.feed.Subscribe(l.HandleEvent); err != nil {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
		return err
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.cfg.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stopCh:
				return
			case <-ticker.C:
				l.pruneSeen()
			}
		}
	}()

	l.log.Plain().Info("listener started")
	return nil
}

// Stop unsubscribes from the feed. Stopping an inactive listener is a no-op.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	close(l.stopCh)
	l.mu.Unlock()

	l.feed.Unsubscribe()
	l.wg.Wait()
	l.log.Plain().Info("listener stopped")
}

// Active reports whether the listener is subscribed
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// HandleEvent processes one observed change event from the feed
func (l *Listener) HandleEvent(ctx context.Context, ev feed.Event) {
	if ev.OldStatus == ev.NewStatus {
		metrics.EventsIgnoredTotal.WithLabelValues("unchanged").Inc()
		return
	}
	_, _ = l.process(ctx, ev)
}

// RunManualTransition runs the fetch-to-enqueue path for an externally
// supplied transition, bypassing the feed. Returns the enqueued job id.
func (l *Listener) RunManualTransition(ctx context.Context, taskID, oldStatus, newStatus, actor string) (string, error) {
	return l.process(ctx, feed.Event{
		TaskID:    taskID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: actor,
	})
}

// process runs fetch, eligibility, dedup, build, and enqueue for one event.
// Abandonment is logged and returned as an error; the feed path ignores it.
func (l *Listener) process(ctx context.Context, ev feed.Event) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "listener.process",
		attribute.String("task_id", ev.TaskID),
		attribute.String("old_status", ev.OldStatus),
		attribute.String("new_status", ev.NewStatus),
	)
	defer span.End()

	task, err := l.store.GetTask(ctx, ev.TaskID)
	if err != nil {
		// A missing task is not transient; abandon without retry.
		metrics.EventsIgnoredTotal.WithLabelValues("missing_data").Inc()
		l.log.Plain().WithField("task_id", ev.TaskID).WithError(err).Warn("task fetch failed, event abandoned")
		return "", fmt.Errorf("fetch task %s: %w", ev.TaskID, err)
	}

	partyIDs := make([]string, 0, 2)
	if task.AssignerID != "" {
		partyIDs = append(partyIDs, task.AssignerID)
	}
	if task.AssigneeID != "" {
		partyIDs = append(partyIDs, task.AssigneeID)
	}
	profiles, err := l.store.GetProfiles(ctx, partyIDs)
	if err != nil || len(profiles) == 0 {
		metrics.EventsIgnoredTotal.WithLabelValues("missing_data").Inc()
		l.log.Plain().WithField("task_id", ev.TaskID).WithError(err).Warn("profile fetch failed, event abandoned")
		return "", errors.New("no profiles for task parties")
	}

	if !eligible(ev.OldStatus, ev.NewStatus) {
		metrics.EventsIgnoredTotal.WithLabelValues("ineligible").Inc()
		l.log.Plain().
			WithField("task_id", ev.TaskID).
			WithField("transition", ev.OldStatus+"->"+ev.NewStatus).
			Debug("transition not notification-worthy")
		return "", errors.New("transition not eligible")
	}

	if l.isDuplicate(ev) {
		metrics.EventsIgnoredTotal.WithLabelValues("duplicate").Inc()
		l.log.Plain().
			WithField("task_id", ev.TaskID).
			WithField("transition", ev.OldStatus+"->"+ev.NewStatus).
			Warn("duplicate transition within dedup window, dropped")
		return "", errors.New("duplicate event")
	}

	input := l.buildInput(task, ev, profiles)
	if bad := template.ValidateInput(input); len(bad) > 0 {
		metrics.EventsIgnoredTotal.WithLabelValues("invalid_input").Inc()
		l.log.Plain().
			WithField("task_id", ev.TaskID).
			WithField("missing_fields", bad).
			Warn("template input invalid, event abandoned")
		return "", fmt.Errorf("invalid template input: %v", bad)
	}

	recipients := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Email != "" {
			recipients = append(recipients, p.Email)
		}
	}

	kind := kindFor(ev.NewStatus)
	jobID := l.queue.Enqueue(kind, input, recipients, queue.Options{
		Priority: priorityFor(ev.NewStatus),
	})
	if jobID == "" {
		return "", errors.New("no recipients with addresses")
	}

	l.log.WithJob(jobID).
		WithKind(string(kind)).
		WithField("task_id", ev.TaskID).
		WithField("transition", ev.OldStatus+"->"+ev.NewStatus).
		Info("notification job enqueued")
	return jobID, nil
}

func eligible(oldStatus, newStatus string) bool {
	_, oldOK := notifiable[oldStatus]
	_, newOK := notifiable[newStatus]
	return oldOK && newOK
}

// isDuplicate records the transition and reports whether the same one was
// already processed inside the dedup window
func (l *Listener) isDuplicate(ev feed.Event) bool {
	key := ev.TaskID + "|" + ev.OldStatus + "|" + ev.NewStatus
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.seen[key]; ok && now.Sub(last) < l.cfg.DedupWindow {
		return true
	}
	l.seen[key] = now
	return false
}

func (l *Listener) pruneSeen() {
	cutoff := l.now().Add(-dedupRetention)
	l.mu.Lock()
	for k, t := range l.seen {
		if t.Before(cutoff) {
			delete(l.seen, k)
		}
	}
	l.mu.Unlock()
}

func (l *Listener) buildInput(task store.Task, ev feed.Event, profiles []store.Profile) template.Input {
	in := template.Input{
		TaskID:      task.ID,
		Title:       task.Title,
		ProjectName: task.ProjectName,
		OldStatus:   ev.OldStatus,
		NewStatus:   ev.NewStatus,
		ChangedBy:   ev.ChangedBy,
		ChangedAt:   l.now(),
		TaskURL:     l.cfg.BaseURL + "/tasks/" + task.ID,
	}
	for _, p := range profiles {
		switch p.ID {
		case task.AssignerID:
			in.AssignerName = p.Name
		case task.AssigneeID:
			in.AssigneeName = p.Name
		}
	}
	return in
}

func kindFor(newStatus string) template.Kind {
	switch newStatus {
	case template.StatusAssigned:
		return template.KindAssigned
	case template.StatusApproved:
		return template.KindApproved
	case template.StatusRejected:
		return template.KindRejected
	case template.StatusWaitingConfirm:
		return template.KindWaitingConfirmation
	}
	return template.KindStatusChange
}

func priorityFor(newStatus string) queue.Priority {
	switch newStatus {
	case template.StatusApproved, template.StatusRejected:
		return queue.PriorityHigh
	case template.StatusWaitingConfirm, template.StatusAssigned:
		return queue.PriorityNormal
	}
	return queue.PriorityLow
}
