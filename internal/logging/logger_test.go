package logging

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestLogger(capacity int) *Logger {
	l := NewWithCapacity("test", capacity)
	l.SetLevel(LevelDebug)
	return l
}

func TestLevelGate(t *testing.T) {
	tests := []struct {
		name      string
		min       Level
		emit      Level
		wantCount int
	}{
		{name: "debug below info gate", min: LevelInfo, emit: LevelDebug, wantCount: 0},
		{name: "info passes info gate", min: LevelInfo, emit: LevelInfo, wantCount: 1},
		{name: "warn passes info gate", min: LevelInfo, emit: LevelWarn, wantCount: 1},
		{name: "error passes warn gate", min: LevelWarn, emit: LevelError, wantCount: 1},
		{name: "info below warn gate", min: LevelWarn, emit: LevelInfo, wantCount: 0},
		{name: "debug passes debug gate", min: LevelDebug, emit: LevelDebug, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewWithCapacity("test", 10)
			l.SetLevel(tt.min)

			switch tt.emit {
			case LevelDebug:
				l.Plain().Debug("msg")
			case LevelInfo:
				l.Plain().Info("msg")
			case LevelWarn:
				l.Plain().Warn("msg")
			case LevelError:
				l.Plain().Error("msg")
			}

			if got := l.Stats().Total; got != tt.wantCount {
				t.Errorf("Stats().Total = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	l := newTestLogger(10)
	l.SetLevel(Level("verbose"))
	if got := l.MinLevel(); got != LevelDebug {
		t.Errorf("MinLevel() = %q after unknown SetLevel, want %q", got, LevelDebug)
	}
}

func TestCapacityEviction(t *testing.T) {
	l := newTestLogger(3)
	for i := 0; i < 5; i++ {
		l.Plain().Infof("entry %d", i)
	}

	entries := l.Query("", 0, "")
	if len(entries) != 3 {
		t.Fatalf("buffered %d entries, want 3", len(entries))
	}
	// Newest first: the two oldest entries were evicted.
	if entries[0].Message != "entry 4" {
		t.Errorf("newest entry = %q, want %q", entries[0].Message, "entry 4")
	}
	if entries[2].Message != "entry 2" {
		t.Errorf("oldest surviving entry = %q, want %q", entries[2].Message, "entry 2")
	}
}

func TestQueryFilters(t *testing.T) {
	l := newTestLogger(100)
	l.WithJob("job-1").Info("enqueued")
	l.WithJob("job-1").Warn("retry scheduled")
	l.WithJob("job-2").Info("enqueued")
	l.Plain().Error("transport down")

	tests := []struct {
		name  string
		level Level
		limit int
		jobID string
		want  int
	}{
		{name: "all entries", level: "", limit: 0, jobID: "", want: 4},
		{name: "level filter", level: LevelInfo, limit: 0, jobID: "", want: 2},
		{name: "job filter", level: "", limit: 0, jobID: "job-1", want: 2},
		{name: "level and job filter", level: LevelWarn, limit: 0, jobID: "job-1", want: 1},
		{name: "limit applies", level: "", limit: 2, jobID: "", want: 2},
		{name: "no match", level: LevelDebug, limit: 0, jobID: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Query(tt.level, tt.limit, tt.jobID)
			if len(got) != tt.want {
				t.Errorf("Query(%q, %d, %q) returned %d entries, want %d",
					tt.level, tt.limit, tt.jobID, len(got), tt.want)
			}
		})
	}
}

func TestQueryNewestFirst(t *testing.T) {
	l := newTestLogger(10)
	l.Plain().Info("first")
	l.Plain().Info("second")
	l.Plain().Info("third")

	got := l.Query("", 0, "")
	want := []string{"third", "second", "first"}
	for i, m := range want {
		if got[i].Message != m {
			t.Errorf("entry %d = %q, want %q", i, got[i].Message, m)
		}
	}
}

func TestStats(t *testing.T) {
	l := newTestLogger(100)
	l.Plain().Debug("d")
	l.Plain().Info("i")
	l.Plain().Info("i")
	l.Plain().Warn("w")
	l.Plain().Error("e")

	s := l.Stats()
	if s.Debug != 1 || s.Info != 2 || s.Warn != 1 || s.Error != 1 || s.Total != 5 {
		t.Errorf("Stats() = %+v, want debug=1 info=2 warn=1 error=1 total=5", s)
	}
}

func TestClearByAge(t *testing.T) {
	l := newTestLogger(100)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ages := []time.Duration{48 * time.Hour, 25 * time.Hour, time.Hour}
	for i, age := range ages {
		age := age
		l.now = func() time.Time { return base.Add(-age) }
		l.Plain().Infof("entry %d", i)
	}
	l.now = func() time.Time { return base }

	removed := l.Clear(24)
	if removed != 2 {
		t.Fatalf("Clear(24) removed %d entries, want 2", removed)
	}
	entries := l.Query("", 0, "")
	if len(entries) != 1 || entries[0].Message != "entry 2" {
		t.Errorf("surviving entries = %v, want only the 1h-old entry", entries)
	}
}

func TestClearAll(t *testing.T) {
	l := newTestLogger(100)
	for i := 0; i < 4; i++ {
		l.Plain().Info("entry")
	}
	if removed := l.Clear(0); removed != 4 {
		t.Errorf("Clear(0) removed %d, want 4", removed)
	}
	if got := l.Stats().Total; got != 0 {
		t.Errorf("Stats().Total = %d after Clear(0), want 0", got)
	}
}

func TestRecordFields(t *testing.T) {
	l := newTestLogger(10)
	l.WithJob("job-9").
		WithRecipient("dev@example.com").
		WithKind("assigned").
		WithField("attempt", 2).
		WithError(errors.New("boom")).
		Warn("send failed")

	entries := l.Query(LevelWarn, 1, "job-9")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Recipient != "dev@example.com" {
		t.Errorf("Recipient = %q, want dev@example.com", e.Recipient)
	}
	if e.TemplateKind != "assigned" {
		t.Errorf("TemplateKind = %q, want assigned", e.TemplateKind)
	}
	if e.Fields["attempt"] != 2 {
		t.Errorf("Fields[attempt] = %v, want 2", e.Fields["attempt"])
	}
	if e.Error != "boom" {
		t.Errorf("Error = %q, want boom", e.Error)
	}
	if e.Service != "test" {
		t.Errorf("Service = %q, want test", e.Service)
	}
}

func TestEntryIDsSequential(t *testing.T) {
	l := newTestLogger(10)
	l.Plain().Info("a")
	l.Plain().Info("b")

	entries := l.Query("", 0, "")
	for i, want := range []string{"log-000002", "log-000001"} {
		if entries[i].ID != want {
			t.Errorf("entry %d ID = %q, want %q", i, entries[i].ID, want)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	l := newTestLogger(1000)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				l.Plain().Info(fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	if got := l.Stats().Total; got != 400 {
		t.Errorf("Stats().Total = %d after concurrent emits, want 400", got)
	}
}
