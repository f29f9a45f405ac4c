package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/queue"
)

// State is the manager lifecycle state
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateRunning       State = "running"
	StateShuttingDown  State = "shutting-down"
)

// Tier is the coarse health summary derived from queue statistics and
// accumulated problems
type Tier string

const (
	TierHealthy Tier = "healthy"
	TierWarning Tier = "warning"
	TierError   Tier = "error"
)

// Health thresholds. The health check flags the queue when failures or
// backlog cross the outer limits; Status derives a warning tier from the
// inner ones.
const (
	checkFailedRatio  = 0.20
	checkPendingLimit = 200
	warnFailedRatio   = 0.10
	warnPendingLimit  = 100

	sweepAgeHours     = 1
	logRetentionHours = 24
)

// JobQueue is the slice of the delivery queue the manager drives
type JobQueue interface {
	Start()
	Stop()
	Stats() queue.Stats
	Sweep(olderThanHours int) int
	TestTransport(ctx context.Context) bool
}

// EventListener is the slice of the change listener the manager drives
type EventListener interface {
	Start() error
	Stop()
	Active() bool
}

// Status is the derived pipeline status report
type Status struct {
	State           State       `json:"state"`
	Initialized     bool        `json:"initialized"`
	ListenerActive  bool        `json:"listener_active"`
	Jobs            queue.Stats `json:"jobs"`
	LastHealthCheck time.Time   `json:"last_health_check,omitempty"`
	Health          Tier        `json:"health"`
	Errors          []string    `json:"errors,omitempty"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// Manager owns pipeline lifecycle: it starts and stops the queue and
// listener, runs the periodic health check, and reports aggregate status.
// It never panics or crashes the host process; every failure lands in the
// accumulated error list instead.
type Manager struct {
	queue    JobQueue
	listener EventListener
	log      *logging.Logger
	interval time.Duration

	mu        sync.Mutex
	state     State
	errors    []string
	warnings  []string
	lastCheck time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	now func() time.Time
}

func New(q JobQueue, l EventListener, log *logging.Logger, healthInterval time.Duration) *Manager {
	if healthInterval <= 0 {
		healthInterval = 5 * time.Minute
	}
	return &Manager{
		queue:    q,
		listener: l,
		log:      log,
		interval: healthInterval,
		state:    StateUninitialized,
		now:      time.Now,
	}
}

// Initialize probes the transport, starts the queue and listener, runs an
// initial sweep, and starts the health-check timer. A failed transport probe
// is recorded and reported through the return value; the pipeline still
// starts so the health check can pick the transport up when it recovers.
func (m *Manager) Initialize(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != StateUninitialized {
		running := m.state == StateRunning
		m.mu.Unlock()
		m.log.Plain().Warn("initialize called while pipeline active")
		return running
	}
	m.state = StateInitializing
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	ok := true
	if !m.queue.TestTransport(ctx) {
		ok = false
		m.recordError("transport probe failed during initialization")
		m.log.Plain().Error("transport probe failed during initialization")
	}

	m.queue.Start()
	if err := m.listener.Start(); err != nil {
		ok = false
		m.recordError(fmt.Sprintf("listener start failed: %v", err))
		m.log.Plain().WithError(err).Error("listener start failed")
	}
	m.queue.Sweep(sweepAgeHours)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.healthCheck(context.Background())
			}
		}
	}()

	m.mu.Lock()
	m.state = StateRunning
	m.mu.Unlock()
	m.log.Plain().Info("pipeline initialized")
	return ok
}

// Shutdown stops the health timer, the listener, and the dispatch loop, then
// runs a final unconditional sweep
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	m.state = StateShuttingDown
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	m.listener.Stop()
	m.queue.Stop()
	m.queue.Sweep(0)

	m.mu.Lock()
	m.state = StateUninitialized
	m.mu.Unlock()
	m.log.Plain().Info("pipeline shut down")
}

// healthCheck re-probes the transport, flags excessive failures or backlog,
// and runs the periodic sweep and log retention prune
func (m *Manager) healthCheck(ctx context.Context) {
	if !m.queue.TestTransport(ctx) {
		m.recordError("health check: transport unreachable")
		m.log.Plain().Error("health check: transport unreachable")
	}

	stats := m.queue.Stats()
	if stats.Total > 0 {
		ratio := float64(stats.Failed) / float64(stats.Total)
		if ratio > checkFailedRatio {
			m.recordWarning(fmt.Sprintf("failed job ratio %.0f%% exceeds %.0f%%", ratio*100, checkFailedRatio*100))
		}
	}
	if stats.Pending > checkPendingLimit {
		m.recordWarning(fmt.Sprintf("pending job count %d exceeds %d", stats.Pending, checkPendingLimit))
	}

	swept := m.queue.Sweep(sweepAgeHours)
	pruned := m.log.Clear(logRetentionHours)

	m.mu.Lock()
	m.lastCheck = m.now()
	m.mu.Unlock()

	m.log.Plain().
		WithField("pending", stats.Pending).
		WithField("failed", stats.Failed).
		WithField("swept", swept).
		WithField("logs_pruned", pruned).
		Debug("health check complete")
}

func (m *Manager) recordError(msg string) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}

func (m *Manager) recordWarning(msg string) {
	m.mu.Lock()
	m.warnings = append(m.warnings, msg)
	m.mu.Unlock()
}

// ClearErrors resets the accumulated error and warning lists
func (m *Manager) ClearErrors() {
	m.mu.Lock()
	m.errors = nil
	m.warnings = nil
	m.mu.Unlock()
}

// Status derives the current pipeline status. Tier is error when any
// accumulated error exists, warning on accumulated warnings or elevated
// failure ratio or backlog, healthy otherwise.
func (m *Manager) Status() Status {
	stats := m.queue.Stats()

	m.mu.Lock()
	st := Status{
		State:           m.state,
		Initialized:     m.state == StateRunning,
		ListenerActive:  m.listener.Active(),
		Jobs:            stats,
		LastHealthCheck: m.lastCheck,
		Errors:          append([]string(nil), m.errors...),
		Warnings:        append([]string(nil), m.warnings...),
	}
	m.mu.Unlock()

	st.Health = deriveTier(stats, st.Errors, st.Warnings)
	return st
}

func deriveTier(stats queue.Stats, errors, warnings []string) Tier {
	if len(errors) > 0 {
		return TierError
	}
	if len(warnings) > 0 {
		return TierWarning
	}
	if stats.Total > 0 && float64(stats.Failed)/float64(stats.Total) > warnFailedRatio {
		return TierWarning
	}
	if stats.Pending > warnPendingLimit {
		return TierWarning
	}
	return TierHealthy
}
