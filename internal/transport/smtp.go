package transport

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTP delivers messages over a plain SMTP server. No mail library appears
// in this codebase's dependency set; net/smtp covers the single-message,
// single-recipient contract the queue needs.
type SMTP struct {
	addr     string // host:port
	username string
	password string
	from     string
}

func NewSMTP(addr, username, password, from string) *SMTP {
	return &SMTP{addr: addr, username: username, password: password, from: from}
}

// Probe dials the server and quits without sending
func (t *SMTP) Probe(ctx context.Context) bool {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return false
	}
	host, _, _ := net.SplitHostPort(t.addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return false
	}
	_ = c.Quit()
	return true
}

// Send delivers one multipart/alternative message to one recipient.
// net/smtp has no context support, so the deadline rides on the connection.
func (t *SMTP) Send(ctx context.Context, recipient, subject, html, text string) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(t.addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if t.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", t.username, t.password, host)); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(t.from); err != nil {
		return err
	}
	if err := c.Rcpt(recipient); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMIME(t.from, recipient, subject, html, text)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

const mimeBoundary = "taskpulse-alt"

// buildMIME assembles a multipart/alternative message with text and HTML parts
func buildMIME(from, to, subject, html, text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}
