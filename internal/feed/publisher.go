package feed

import (
	"context"
	"encoding/json"

	"github.com/nsqio/go-nsq"

	"github.com/austindbirch/taskpulse/internal/config"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/tracing"
)

// Publisher writes change events onto the task status change topic. The
// pipeline only consumes the topic; this is the producer side, used by
// tooling that feeds the pipeline so end-to-end runs carry the same wire
// format the consumer expects, trace headers included.
type Publisher struct {
	cfg  config.NSQ
	log  *logging.Logger
	prod *nsq.Producer
}

func NewPublisher(cfg config.NSQ, log *logging.Logger) (*Publisher, error) {
	prod, err := nsq.NewProducer(cfg.NsqdTCPAddr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	return &Publisher{cfg: cfg, log: log, prod: prod}, nil
}

// Publish marshals the event and writes it to the changes topic. The current
// trace context is injected into the message headers so the consumer side can
// continue the same trace.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	ev.TraceHeaders = tracing.PropagateTraceToFeed(ctx)
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.prod.Publish(p.cfg.ChangesTopic, body); err != nil {
		return err
	}
	p.log.Plain().
		WithField("task_id", ev.TaskID).
		WithField("transition", ev.OldStatus+" -> "+ev.NewStatus).
		Info("published change event")
	return nil
}

func (p *Publisher) Stop() {
	p.prod.Stop()
}
