// feed-inject publishes a single task status change event to the changes
// topic, for exercising the pipeline end to end without the task service.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"

	"github.com/austindbirch/taskpulse/internal/config"
	"github.com/austindbirch/taskpulse/internal/feed"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/tracing"
)

func main() {
	task := flag.String("task", "", "task id (required)")
	oldStatus := flag.String("old", "", "previous status (required)")
	newStatus := flag.String("new", "", "new status (required)")
	by := flag.String("by", "feed-inject", "actor recorded on the event")
	flag.Parse()

	if *task == "" || *oldStatus == "" || *newStatus == "" {
		flag.Usage()
		log.Fatal("-task, -old, and -new are required")
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := logging.New("feed-inject")

	ctx := context.Background()
	shutdownTracing, err := tracing.InitTracing(ctx, "feed-inject")
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer shutdownTracing()

	pub, err := feed.NewPublisher(cfg.NSQ, logger)
	if err != nil {
		log.Fatalf("nsq producer: %v", err)
	}
	defer pub.Stop()

	ctx, span := tracing.StartSpan(ctx, "feed-inject.publish",
		attribute.String("task_id", *task),
		attribute.String("new_status", *newStatus),
	)
	defer span.End()

	ev := feed.Event{
		TaskID:    *task,
		OldStatus: *oldStatus,
		NewStatus: *newStatus,
		ChangedBy: *by,
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Fatalf("publish: %v", err)
	}
	log.Printf("published %s -> %s for task %s on topic %s",
		*oldStatus, *newStatus, *task, cfg.NSQ.ChangesTopic)
}
