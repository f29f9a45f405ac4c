package queue

import (
	"time"

	"github.com/austindbirch/taskpulse/internal/template"
)

// Priority orders jobs within the queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// rank maps priority onto selection order; higher dispatches first
func rank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	}
	return 1
}

// Status is the delivery job lifecycle state. Jobs start pending, are moved
// to processing by the dispatch loop, and end in sent, failed, or cancelled.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func terminal(s Status) bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// Job is one unit of outbound notification work. Status transitions happen
// only inside the queue.
type Job struct {
	ID          string         `json:"id"`
	Kind        template.Kind  `json:"kind"`
	Input       template.Input `json:"input"`
	Recipients  []string       `json:"recipients"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	Retries     int            `json:"retries"`
	MaxRetries  int            `json:"max_retries"`
	CreatedAt   time.Time      `json:"created_at"`
	LastAttempt time.Time      `json:"last_attempt,omitempty"`
	NotBefore   time.Time      `json:"not_before,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
}

// Options tunes an individual enqueue call. Zero values fall back to the
// queue defaults (normal priority, configured max retries, no hold time).
type Options struct {
	Priority   Priority
	MaxRetries int
	NotBefore  time.Time
}

// Stats aggregates job counts by status
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}
