package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/austindbirch/taskpulse/internal/auth"
	"github.com/austindbirch/taskpulse/internal/config"
	"github.com/austindbirch/taskpulse/internal/feed"
	"github.com/austindbirch/taskpulse/internal/listener"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/metrics"
	"github.com/austindbirch/taskpulse/internal/ops"
	"github.com/austindbirch/taskpulse/internal/pipeline"
	"github.com/austindbirch/taskpulse/internal/queue"
	"github.com/austindbirch/taskpulse/internal/store"
	"github.com/austindbirch/taskpulse/internal/tracing"
	"github.com/austindbirch/taskpulse/internal/transport"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	ctx := context.Background()

	logger := logging.NewWithCapacity(cfg.AppName, cfg.Pipeline.LogCapacity)
	logger.SetLevel(logging.Level(cfg.Pipeline.LogLevel))

	shutdown, err := tracing.InitTracing(ctx, cfg.AppName)
	if err != nil {
		logger.Plain().WithError(err).Fatal("failed to initialize tracing")
	}
	defer shutdown()

	// DB connect
	pool, err := store.Connect(ctx, cfg.DSN())
	if err != nil {
		logger.Plain().WithError(err).Fatal("db connect failed")
	}
	defer pool.Close()
	entities := store.NewPG(pool)

	tr, err := transport.New(cfg.Transport)
	if err != nil {
		logger.Plain().WithError(err).Fatal("transport setup failed")
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	q := queue.New(tr, logger, queue.Config{
		DispatchInterval:  cfg.Pipeline.DispatchInterval,
		BackoffUnit:       cfg.Pipeline.BackoffUnit,
		SendTimeout:       cfg.Pipeline.SendTimeout,
		DefaultMaxRetries: cfg.Pipeline.DefaultMaxRetries,
	})

	changes := feed.NewNSQ(cfg.NSQ, logger)
	lst := listener.New(changes, entities, q, logger, listener.Config{
		BaseURL:       cfg.BaseURL,
		DedupWindow:   cfg.Pipeline.DedupWindow,
		PruneInterval: cfg.Pipeline.DedupPruneInterval,
	})

	mgr := pipeline.New(q, lst, logger, cfg.Pipeline.HealthCheckInterval)
	if !mgr.Initialize(ctx) {
		logger.Plain().Warn("pipeline initialized with errors, see /v1/pipeline/status")
	}

	// Ops API auth is optional: no public key means open endpoints
	var validator *auth.JWTValidator
	if cfg.Ops.JWTPublicKey != "" {
		validator, err = auth.NewJWTValidator(cfg.Ops.JWTPublicKey, cfg.Ops.JWTIssuer, cfg.Ops.JWTAudience)
		if err != nil {
			logger.Plain().WithError(err).Fatal("jwt validator setup failed")
		}
	}

	srv := ops.NewServer(mgr, q, lst, logger, pool, reg, validator)
	httpSrv := &http.Server{Addr: cfg.Ops.HTTPPort, Handler: srv.Router()}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("ops HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("ops HTTP server failed")
		}
	}()

	startBacklogMonitor(cfg, logger)

	logger.Plain().Info("pipeline service started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("shutting down pipeline service")
	mgr.Shutdown()
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("pipeline service stopped")
}

// startBacklogMonitor polls nsqd stats and exports the change topic backlog
// depth for the pipeline consumer channel
func startBacklogMonitor(cfg config.Config, logger *logging.Logger) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		httpClient := &http.Client{Timeout: 5 * time.Second}

		for range ticker.C {
			// nsqd serves stats over HTTP one port above the TCP port
			nsqdHTTPAddr := strings.Replace(cfg.NSQ.NsqdTCPAddr, ":4150", ":4151", 1)
			resp, err := httpClient.Get(fmt.Sprintf("http://%s/stats?format=json", nsqdHTTPAddr))
			if err != nil {
				logger.Plain().WithError(err).Error("failed to get NSQ stats")
				continue
			}

			var stats struct {
				Topics []struct {
					Name     string `json:"topic_name"`
					Channels []struct {
						Name  string `json:"channel_name"`
						Depth int64  `json:"depth"`
					} `json:"channels"`
				} `json:"topics"`
			}

			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				resp.Body.Close()
				logger.Plain().WithError(err).Error("failed to decode NSQ stats")
				continue
			}
			resp.Body.Close()

			for _, topic := range stats.Topics {
				if topic.Name != cfg.NSQ.ChangesTopic {
					continue
				}
				for _, channel := range topic.Channels {
					if channel.Name == cfg.NSQ.Channel {
						metrics.FeedBacklogDepth.Set(float64(channel.Depth))
					}
				}
			}
		}
	}()
}
