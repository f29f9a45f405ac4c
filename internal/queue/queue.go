package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/metrics"
	"github.com/austindbirch/taskpulse/internal/template"
	"github.com/austindbirch/taskpulse/internal/tracing"
	"github.com/austindbirch/taskpulse/internal/transport"
)

// Config tunes the dispatch loop
type Config struct {
	DispatchInterval  time.Duration // one dispatch tick per interval
	BackoffUnit       time.Duration // base unit for exponential retry backoff
	SendTimeout       time.Duration // per-recipient send deadline
	DefaultMaxRetries int
}

func (c Config) withDefaults() Config {
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = 5 * time.Second
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.DefaultMaxRetries <= 0 {
		c.DefaultMaxRetries = 3
	}
	return c
}

// Queue is the in-memory delivery queue: jobs ordered by priority then
// creation time, dispatched one at a time by a periodic tick. All job
// mutation happens here, under the queue mutex.
type Queue struct {
	mu   sync.Mutex
	jobs []*Job

	cfg       Config
	transport transport.Transport
	log       *logging.Logger

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

func New(tr transport.Transport, log *logging.Logger, cfg Config) *Queue {
	return &Queue{
		cfg:       cfg.withDefaults(),
		transport: tr,
		log:       log,
		now:       time.Now,
	}
}

// Enqueue adds a delivery job and returns its id. Recipients are
// deduplicated; an empty recipient list is a logged no-op returning an
// empty id, never an error.
func (q *Queue) Enqueue(kind template.Kind, in template.Input, recipients []string, opts Options) string {
	uniq := dedupRecipients(recipients)
	if len(uniq) == 0 {
		q.log.Plain().WithKind(string(kind)).Warn("enqueue rejected: no recipients")
		metrics.EventsIgnoredTotal.WithLabelValues("no_recipients").Inc()
		return ""
	}

	if opts.Priority == "" {
		opts.Priority = PriorityNormal
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = q.cfg.DefaultMaxRetries
	}

	q.mu.Lock()
	job := &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Input:      in,
		Recipients: uniq,
		Priority:   opts.Priority,
		Status:     StatusPending,
		MaxRetries: opts.MaxRetries,
		CreatedAt:  q.now(),
		NotBefore:  opts.NotBefore,
	}
	q.insertLocked(job)
	pending := q.countLocked(StatusPending)
	q.mu.Unlock()

	metrics.NotificationsEnqueuedTotal.Inc()
	metrics.PendingJobs.Set(float64(pending))
	q.log.WithJob(job.ID).
		WithKind(string(kind)).
		WithField("priority", string(opts.Priority)).
		WithField("recipients", len(uniq)).
		Debug("job enqueued")
	return job.ID
}

// insertLocked keeps jobs ordered by priority descending, creation time
// ascending. Appending after equal-priority entries preserves FIFO within a
// class.
func (q *Queue) insertLocked(job *Job) {
	i := len(q.jobs)
	for ; i > 0; i-- {
		if rank(q.jobs[i-1].Priority) >= rank(job.Priority) {
			break
		}
	}
	q.jobs = append(q.jobs, nil)
	copy(q.jobs[i+1:], q.jobs[i:])
	q.jobs[i] = job
}

func dedupRecipients(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Job returns a copy of the job with the given id
func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j := q.findLocked(id); j != nil {
		return *j, true
	}
	return Job{}, false
}

func (q *Queue) findLocked(id string) *Job {
	for _, j := range q.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// Cancel marks a job cancelled. Only pending jobs can be cancelled; a job
// already picked up by the dispatcher runs to completion.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	j := q.findLocked(id)
	if j == nil || j.Status != StatusPending {
		q.mu.Unlock()
		return false
	}
	j.Status = StatusCancelled
	pending := q.countLocked(StatusPending)
	q.mu.Unlock()

	metrics.PendingJobs.Set(float64(pending))
	q.log.WithJob(id).Info("job cancelled")
	return true
}

// Stats returns job counts by status
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, j := range q.jobs {
		switch j.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusSent:
			s.Sent++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	s.Total = len(q.jobs)
	return s
}

func (q *Queue) countLocked(st Status) int {
	n := 0
	for _, j := range q.jobs {
		if j.Status == st {
			n++
		}
	}
	return n
}

// Sweep removes terminal jobs older than the given number of hours and
// returns the removed count. Pending and processing jobs are never swept.
func (q *Queue) Sweep(olderThanHours int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-time.Duration(olderThanHours) * time.Hour)
	kept := q.jobs[:0]
	removed := 0
	for _, j := range q.jobs {
		ref := j.LastAttempt
		if ref.IsZero() {
			ref = j.CreatedAt
		}
		if terminal(j.Status) && ref.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
	if removed > 0 {
		q.log.Plain().WithField("removed", removed).Debug("queue sweep")
	}
	return removed
}

// TestTransport probes the transport boundary without sending anything
func (q *Queue) TestTransport(ctx context.Context) bool {
	return q.transport.Probe(ctx)
}

// Start launches the periodic dispatch loop. Safe to call once; a second
// call while running is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.DispatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-q.stopCh:
				return
			case <-ticker.C:
				q.dispatchOnce(context.Background())
			}
		}
	}()
}

// Stop halts the dispatch loop and waits for an in-flight tick to finish
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()
	q.wg.Wait()
}

// dispatchOnce dispatches at most one eligible job: the first pending job in
// priority order whose hold time has passed. Returns whether a job was
// attempted.
func (q *Queue) dispatchOnce(ctx context.Context) bool {
	now := q.now()

	q.mu.Lock()
	var job *Job
	for _, j := range q.jobs {
		if j.Status == StatusPending && !j.NotBefore.After(now) {
			job = j
			break
		}
	}
	if job == nil {
		q.mu.Unlock()
		return false
	}
	job.Status = StatusProcessing
	job.LastAttempt = now
	id := job.ID
	kind := job.Kind
	input := job.Input
	recipients := append([]string(nil), job.Recipients...)
	q.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "queue.dispatch",
		attribute.String("job_id", id),
		attribute.String("template_kind", string(kind)),
		attribute.Int("recipients", len(recipients)),
	)
	defer span.End()

	msg := template.Render(kind, input)

	// Fan out one send per recipient and join before deciding the
	// attempt outcome. A failing recipient never aborts the rest.
	type result struct {
		recipient string
		err       error
	}
	results := make([]result, len(recipients))
	var wg sync.WaitGroup
	for i, r := range recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, q.cfg.SendTimeout)
			defer cancel()
			err := q.transport.Send(sendCtx, recipient, msg.Subject, msg.HTML, msg.Text)
			results[i] = result{recipient: recipient, err: err}
		}(i, r)
	}
	wg.Wait()

	successes := 0
	var failures []string
	for _, res := range results {
		if res.err == nil {
			successes++
			metrics.RecipientSendsTotal.WithLabelValues("ok").Inc()
		} else {
			failures = append(failures, fmt.Sprintf("%s: %v", res.recipient, res.err))
			metrics.RecipientSendsTotal.WithLabelValues("error").Inc()
		}
	}

	// Majority-or-better delivery counts as success: at least one
	// recipient reached and successes >= floor(n/2).
	sent := successes >= 1 && successes >= len(recipients)/2
	summary := strings.Join(failures, "; ")

	q.mu.Lock()
	j := q.findLocked(id)
	if j == nil {
		q.mu.Unlock()
		return true
	}
	var outcome string
	switch {
	case sent:
		j.Status = StatusSent
		j.LastError = ""
		outcome = "sent"
	default:
		j.Retries++
		j.LastError = summary
		if j.Retries >= j.MaxRetries {
			j.Status = StatusFailed
			outcome = "failed"
		} else {
			j.Status = StatusPending
			j.NotBefore = now.Add(time.Duration(1<<uint(j.Retries)) * q.cfg.BackoffUnit)
			outcome = "retry_scheduled"
		}
	}
	retries := j.Retries
	notBefore := j.NotBefore
	pending := q.countLocked(StatusPending)
	q.mu.Unlock()

	metrics.DeliveriesTotal.WithLabelValues(outcome).Inc()
	metrics.PendingJobs.Set(float64(pending))
	tracing.AddSpanEvent(ctx, "queue.attempt_"+outcome,
		attribute.Int("successes", successes),
		attribute.Int("failures", len(failures)),
	)

	switch outcome {
	case "sent":
		rec := q.log.WithJob(id).WithKind(string(kind)).
			WithField("recipients", len(recipients)).
			WithField("successes", successes)
		if summary != "" {
			rec = rec.WithField("failed_recipients", summary)
		}
		rec.Info("job sent")
	case "retry_scheduled":
		q.log.WithJob(id).WithKind(string(kind)).
			WithField("retries", retries).
			WithField("not_before", notBefore.Format(time.RFC3339)).
			WithField("failed_recipients", summary).
			Warn("delivery attempt failed, retry scheduled")
	default:
		tracing.SetSpanError(ctx, fmt.Errorf("job failed after %d retries", retries))
		q.log.WithJob(id).WithKind(string(kind)).
			WithField("retries", retries).
			WithField("failed_recipients", summary).
			Error("job failed permanently")
	}
	return true
}
