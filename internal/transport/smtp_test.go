package transport

import (
	"strings"
	"testing"

	"github.com/austindbirch/taskpulse/internal/config"
)

func TestBuildMIME(t *testing.T) {
	msg := string(buildMIME("noreply@taskpulse.dev", "dev@example.com",
		"Task approved: Fix login", "<p>approved</p>", "approved"))

	wantFragments := []string{
		"From: noreply@taskpulse.dev\r\n",
		"To: dev@example.com\r\n",
		"Subject: Task approved: Fix login\r\n",
		"MIME-Version: 1.0\r\n",
		`multipart/alternative; boundary="taskpulse-alt"`,
		"Content-Type: text/plain; charset=utf-8\r\n\r\napproved\r\n",
		"Content-Type: text/html; charset=utf-8\r\n\r\n<p>approved</p>\r\n",
		"--taskpulse-alt--\r\n",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(msg, frag) {
			t.Errorf("message missing fragment %q", frag)
		}
	}

	// Text part must come before the HTML part per multipart/alternative.
	if strings.Index(msg, "text/plain") > strings.Index(msg, "text/html") {
		t.Error("text part ordered after HTML part")
	}
}

func TestBuildMIMEEncodesSubject(t *testing.T) {
	msg := string(buildMIME("a@x.com", "b@x.com", "Täsk ümlauts", "h", "t"))
	if strings.Contains(msg, "Subject: Täsk ümlauts") {
		t.Error("non-ASCII subject not Q-encoded")
	}
	if !strings.Contains(msg, "=?utf-8?q?") {
		t.Errorf("expected Q-encoded subject, message header: %q", strings.SplitN(msg, "\r\n\r\n", 2)[0])
	}
}

func TestNewSelectsTransport(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		want    string
		wantErr bool
	}{
		{name: "default is httpmail", kind: "", want: "*transport.HTTPMail"},
		{name: "httpmail", kind: "httpmail", want: "*transport.HTTPMail"},
		{name: "smtp", kind: "smtp", want: "*transport.SMTP"},
		{name: "unknown", kind: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(config.Transport{Kind: tt.kind})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %t", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := typeName(tr)
			if got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *HTTPMail:
		return "*transport.HTTPMail"
	case *SMTP:
		return "*transport.SMTP"
	}
	return "unknown"
}
