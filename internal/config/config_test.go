package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.AppName != "taskpulse" {
		t.Errorf("AppName = %q, want taskpulse", cfg.AppName)
	}
	if cfg.NSQ.ChangesTopic != "task_status_changes" {
		t.Errorf("ChangesTopic = %q", cfg.NSQ.ChangesTopic)
	}
	if cfg.NSQ.Channel != "pipeline" {
		t.Errorf("Channel = %q", cfg.NSQ.Channel)
	}
	if cfg.Transport.Kind != "httpmail" {
		t.Errorf("Transport.Kind = %q, want httpmail", cfg.Transport.Kind)
	}
	if cfg.Pipeline.DispatchInterval != 5*time.Second {
		t.Errorf("DispatchInterval = %v, want 5s", cfg.Pipeline.DispatchInterval)
	}
	if cfg.Pipeline.BackoffUnit != time.Second {
		t.Errorf("BackoffUnit = %v, want 1s", cfg.Pipeline.BackoffUnit)
	}
	if cfg.Pipeline.DefaultMaxRetries != 3 {
		t.Errorf("DefaultMaxRetries = %d, want 3", cfg.Pipeline.DefaultMaxRetries)
	}
	if cfg.Pipeline.DedupWindow != 5*time.Minute {
		t.Errorf("DedupWindow = %v, want 5m", cfg.Pipeline.DedupWindow)
	}
	if cfg.Pipeline.LogCapacity != 1000 {
		t.Errorf("LogCapacity = %d, want 1000", cfg.Pipeline.LogCapacity)
	}
	if cfg.Ops.HTTPPort != ":8084" {
		t.Errorf("Ops.HTTPPort = %q, want :8084", cfg.Ops.HTTPPort)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "pulse-staging")
	t.Setenv("DISPATCH_INTERVAL", "250ms")
	t.Setenv("MAX_RETRIES", "7")
	t.Setenv("TRANSPORT_KIND", "smtp")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	if cfg.AppName != "pulse-staging" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if cfg.Pipeline.DispatchInterval != 250*time.Millisecond {
		t.Errorf("DispatchInterval = %v, want 250ms", cfg.Pipeline.DispatchInterval)
	}
	if cfg.Pipeline.DefaultMaxRetries != 7 {
		t.Errorf("DefaultMaxRetries = %d, want 7", cfg.Pipeline.DefaultMaxRetries)
	}
	if cfg.Transport.Kind != "smtp" {
		t.Errorf("Transport.Kind = %q, want smtp", cfg.Transport.Kind)
	}
	if cfg.Pipeline.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Pipeline.LogLevel)
	}
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "lots")
	t.Setenv("DISPATCH_INTERVAL", "soon")

	cfg := FromEnv()
	if cfg.Pipeline.DefaultMaxRetries != 3 {
		t.Errorf("DefaultMaxRetries = %d with bad env, want default 3", cfg.Pipeline.DefaultMaxRetries)
	}
	if cfg.Pipeline.DispatchInterval != 5*time.Second {
		t.Errorf("DispatchInterval = %v with bad env, want default 5s", cfg.Pipeline.DispatchInterval)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DB: DB{User: "pulse", Pass: "s3cret", Host: "db", Port: "5433", Name: "taskpulse"}}
	want := "postgres://pulse:s3cret@db:5433/taskpulse?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
