package feed

import (
	"context"
	"encoding/json"

	"github.com/nsqio/go-nsq"

	"github.com/austindbirch/taskpulse/internal/config"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/tracing"
)

// NSQFeed subscribes to the task status change topic. Each message body is a
// JSON Event; malformed payloads are finished rather than requeued since a
// bad payload never becomes parseable.
type NSQFeed struct {
	cfg      config.NSQ
	log      *logging.Logger
	consumer *nsq.Consumer
}

func NewNSQ(cfg config.NSQ, log *logging.Logger) *NSQFeed {
	return &NSQFeed{cfg: cfg, log: log}
}

func (f *NSQFeed) Subscribe(h Handler) error {
	conf := nsq.NewConfig()
	consumer, err := nsq.NewConsumer(f.cfg.ChangesTopic, f.cfg.Channel, conf)
	if err != nil {
		return err
	}

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		var ev Event
		if err := json.Unmarshal(m.Body, &ev); err != nil {
			f.log.Plain().WithError(err).Error("bad change event payload")
			m.Finish()
			return nil
		}
		ctx := tracing.ExtractTraceFromFeed(context.Background(), ev.TraceHeaders)
		h(ctx, ev)
		return nil
	}))

	// Connecting directly to NSQD forces channel creation instead of the
	// channel being lazily created on first publish.
	if err := consumer.ConnectToNSQD(f.cfg.NsqdTCPAddr); err != nil {
		return err
	}
	if err := consumer.ConnectToNSQLookupd(f.cfg.LookupHTTPAddr); err != nil {
		return err
	}

	f.consumer = consumer
	return nil
}

func (f *NSQFeed) Unsubscribe() {
	if f.consumer == nil {
		return
	}
	f.consumer.Stop()
	<-f.consumer.StopChan
	f.consumer = nil
}
