package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Level represents the severity of a log entry
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// DefaultCapacity is the default size of the in-memory entry buffer
const DefaultCapacity = 1000

// priority maps a level onto the debug<info<warn<error ordering.
// Unknown levels rank below debug so they are never buffered.
func priority(l Level) int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	}
	return -1
}

// Entry is one structured log record held in the buffer
type Entry struct {
	ID           string         `json:"id"`
	Time         time.Time      `json:"time"`
	Level        Level          `json:"level"`
	Message      string         `json:"msg"`
	Service      string         `json:"service,omitempty"`
	JobID        string         `json:"job_id,omitempty"`
	Recipient    string         `json:"recipient,omitempty"`
	TemplateKind string         `json:"template_kind,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Stats aggregates buffered entry counts per level
type Stats struct {
	Debug int `json:"debug"`
	Info  int `json:"info"`
	Warn  int `json:"warn"`
	Error int `json:"error"`
	Total int `json:"total"`
}

// Logger keeps a bounded, queryable buffer of structured entries and mirrors
// every entry to a console sink. The buffer is ordered oldest first; past
// capacity the oldest entry is evicted.
type Logger struct {
	mu       sync.Mutex
	service  string
	min      Level
	capacity int
	entries  []Entry
	seq      uint64
	mirror   *slog.Logger
	now      func() time.Time
}

// New creates a logger for the given service with the default capacity
func New(service string) *Logger {
	return NewWithCapacity(service, DefaultCapacity)
}

// NewWithCapacity creates a logger with an explicit buffer capacity
func NewWithCapacity(service string, capacity int) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	mirror := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339,
	}))
	return &Logger{
		service:  service,
		min:      LevelInfo,
		capacity: capacity,
		mirror:   mirror,
		now:      time.Now,
	}
}

// SetLevel changes the minimum level buffered from now on
func (l *Logger) SetLevel(min Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if priority(min) >= 0 {
		l.min = min
	}
}

// MinLevel returns the current minimum buffered level
func (l *Logger) MinLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.min
}

// Record is a log entry under construction
type Record struct {
	l *Logger
	e Entry
}

// Plain starts a bare record
func (l *Logger) Plain() *Record {
	return &Record{l: l, e: Entry{Service: l.service}}
}

// WithJob starts a record tagged with a delivery job id
func (l *Logger) WithJob(jobID string) *Record {
	return l.Plain().WithJob(jobID)
}

// Fluent setters

func (r *Record) WithJob(jobID string) *Record {
	r.e.JobID = jobID
	return r
}

func (r *Record) WithRecipient(addr string) *Record {
	r.e.Recipient = addr
	return r
}

func (r *Record) WithKind(kind string) *Record {
	r.e.TemplateKind = kind
	return r
}

func (r *Record) WithField(key string, value any) *Record {
	if r.e.Fields == nil {
		r.e.Fields = make(map[string]any)
	}
	r.e.Fields[key] = value
	return r
}

func (r *Record) WithFields(fields map[string]any) *Record {
	if r.e.Fields == nil {
		r.e.Fields = make(map[string]any)
	}
	for k, v := range fields {
		r.e.Fields[k] = v
	}
	return r
}

func (r *Record) WithError(err error) *Record {
	if err != nil {
		r.e.Error = err.Error()
	}
	return r
}

// Emit methods

func (r *Record) Debug(message string) { r.emit(LevelDebug, message) }
func (r *Record) Info(message string)  { r.emit(LevelInfo, message) }
func (r *Record) Warn(message string)  { r.emit(LevelWarn, message) }
func (r *Record) Error(message string) { r.emit(LevelError, message) }

// Fatal logs at error level and exits the process
func (r *Record) Fatal(message string) {
	r.emit(LevelError, message)
	os.Exit(1)
}

func (r *Record) Debugf(format string, args ...any) { r.emit(LevelDebug, fmt.Sprintf(format, args...)) }
func (r *Record) Infof(format string, args ...any)  { r.emit(LevelInfo, fmt.Sprintf(format, args...)) }
func (r *Record) Warnf(format string, args ...any)  { r.emit(LevelWarn, fmt.Sprintf(format, args...)) }
func (r *Record) Errorf(format string, args ...any) { r.emit(LevelError, fmt.Sprintf(format, args...)) }

func (r *Record) emit(level Level, message string) {
	r.e.Level = level
	r.e.Message = message

	l := r.l
	l.mu.Lock()
	r.e.Time = l.now()
	if priority(level) >= priority(l.min) {
		l.seq++
		r.e.ID = fmt.Sprintf("log-%06d", l.seq)
		l.entries = append(l.entries, r.e)
		if len(l.entries) > l.capacity {
			l.entries = l.entries[len(l.entries)-l.capacity:]
		}
	}
	l.mu.Unlock()

	// The console mirror sees every entry regardless of the level gate
	// or buffer state.
	l.mirrorEntry(r.e)
}

func (l *Logger) mirrorEntry(e Entry) {
	attrs := make([]any, 0, 8)
	if e.Service != "" {
		attrs = append(attrs, "service", e.Service)
	}
	if e.JobID != "" {
		attrs = append(attrs, "job_id", e.JobID)
	}
	if e.Recipient != "" {
		attrs = append(attrs, "recipient", e.Recipient)
	}
	if e.TemplateKind != "" {
		attrs = append(attrs, "template_kind", e.TemplateKind)
	}
	for k, v := range e.Fields {
		attrs = append(attrs, k, v)
	}
	if e.Error != "" {
		attrs = append(attrs, "error", e.Error)
	}
	switch e.Level {
	case LevelDebug:
		l.mirror.Debug(e.Message, attrs...)
	case LevelWarn:
		l.mirror.Warn(e.Message, attrs...)
	case LevelError:
		l.mirror.Error(e.Message, attrs...)
	default:
		l.mirror.Info(e.Message, attrs...)
	}
}

// Query returns buffered entries newest first. An empty level matches all
// levels, limit <= 0 means no limit, and a non-empty jobID restricts the
// result to entries tagged with that job.
func (l *Logger) Query(level Level, limit int, jobID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if level != "" && e.Level != level {
			continue
		}
		if jobID != "" && e.JobID != jobID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Stats returns buffered entry counts per level
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	for _, e := range l.entries {
		switch e.Level {
		case LevelDebug:
			s.Debug++
		case LevelInfo:
			s.Info++
		case LevelWarn:
			s.Warn++
		case LevelError:
			s.Error++
		}
	}
	s.Total = len(l.entries)
	return s
}

// Clear removes entries older than the given number of hours and returns the
// removed count. olderThanHours <= 0 clears the whole buffer.
func (l *Logger) Clear(olderThanHours int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.entries)
	if olderThanHours <= 0 {
		l.entries = nil
		return before
	}

	cutoff := l.now().Add(-time.Duration(olderThanHours) * time.Hour)
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.Time.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	return before - len(l.entries)
}
