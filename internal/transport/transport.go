package transport

import (
	"context"
	"fmt"

	"github.com/austindbirch/taskpulse/internal/config"
)

// Transport is the mail delivery boundary: one message to one address.
// Implementations must be safe for concurrent Send calls, since the queue
// fans out one send per recipient.
type Transport interface {
	// Probe checks connectivity without sending a real message
	Probe(ctx context.Context) bool
	// Send delivers one message to one recipient
	Send(ctx context.Context, recipient, subject, html, text string) error
}

// New builds the transport selected by configuration
func New(cfg config.Transport) (Transport, error) {
	switch cfg.Kind {
	case "httpmail", "":
		return NewHTTPMail(cfg.MailAPIURL, cfg.MailAPIKey, cfg.From), nil
	case "smtp":
		return NewSMTP(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.From), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", cfg.Kind)
}
