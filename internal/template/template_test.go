package template

import (
	"strings"
	"testing"
	"time"
)

func testInput() Input {
	return Input{
		TaskID:       "task-42",
		Title:        "Fix login timeout",
		ProjectName:  "Orion",
		OldStatus:    StatusInProgress,
		NewStatus:    StatusWaitingConfirm,
		ChangedBy:    "alex",
		ChangedAt:    time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
		TaskURL:      "https://app.example.com/tasks/task-42",
		AssignerName: "Morgan",
		AssigneeName: "Riley",
	}
}

func TestRenderAllKinds(t *testing.T) {
	kinds := []Kind{
		KindStatusChange,
		KindAssigned,
		KindApproved,
		KindRejected,
		KindWaitingConfirmation,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			msg := Render(kind, testInput())
			if msg.Subject == "" {
				t.Error("empty subject")
			}
			if msg.HTML == "" {
				t.Error("empty HTML body")
			}
			if msg.Text == "" {
				t.Error("empty text body")
			}
			if !strings.Contains(msg.Subject, "Orion") {
				t.Errorf("subject %q missing project name", msg.Subject)
			}
			if !strings.Contains(msg.HTML, "Fix login timeout") {
				t.Error("HTML body missing task title")
			}
			if strings.ContainsAny(msg.Text, "<>") {
				t.Errorf("text body contains markup: %q", msg.Text)
			}
			if !strings.Contains(msg.HTML, testInput().TaskURL) {
				t.Error("HTML body missing task link")
			}
		})
	}
}

func TestRenderGenericDispatchesByStatus(t *testing.T) {
	tests := []struct {
		name        string
		newStatus   string
		wantSubject string
	}{
		{name: "assigned", newStatus: StatusAssigned, wantSubject: "Task assigned"},
		{name: "approved", newStatus: StatusApproved, wantSubject: "Task approved"},
		{name: "rejected", newStatus: StatusRejected, wantSubject: "Task rejected"},
		{name: "waiting confirm", newStatus: StatusWaitingConfirm, wantSubject: "Awaiting confirmation"},
		{name: "done falls back to generic", newStatus: StatusDone, wantSubject: "Task updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			in.NewStatus = tt.newStatus
			msg := Render(KindStatusChange, in)
			if !strings.Contains(msg.Subject, tt.wantSubject) {
				t.Errorf("subject = %q, want it to contain %q", msg.Subject, tt.wantSubject)
			}
		})
	}
}

func TestRenderUnknownKindFallsBack(t *testing.T) {
	in := testInput()
	in.NewStatus = StatusDone
	msg := Render(Kind("bogus"), in)
	if !strings.Contains(msg.Subject, "Task updated") {
		t.Errorf("unknown kind subject = %q, want generic status change", msg.Subject)
	}
}

func TestTransitionSentences(t *testing.T) {
	tests := []struct {
		name      string
		oldStatus string
		newStatus string
		want      string
	}{
		{name: "open to assigned", oldStatus: StatusOpen, newStatus: StatusAssigned, want: "The task has been assigned."},
		{name: "in progress to done", oldStatus: StatusInProgress, newStatus: StatusDone, want: "The task was closed as done."},
		{name: "done to in progress", oldStatus: StatusDone, newStatus: StatusInProgress, want: "The task was reopened."},
		{name: "unlisted pair", oldStatus: StatusDone, newStatus: StatusOpen, want: genericSentence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			in.OldStatus = tt.oldStatus
			in.NewStatus = tt.newStatus
			_, body := renderStatusChange(in)
			if !strings.Contains(body, tt.want) {
				t.Errorf("body %q missing sentence %q", body, tt.want)
			}
		})
	}
}

func TestRenderEscapesUserContent(t *testing.T) {
	in := testInput()
	in.Title = `<script>alert("x")</script>`
	msg := Render(KindApproved, in)
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("HTML body contains unescaped script tag")
	}
	if !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Error("HTML body missing escaped title")
	}
}

func TestRenderMarkupTitleYieldsPlainText(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{name: "markup in title", title: "Fix <b>bold</b> rendering"},
		{name: "entity-encoded markup in title", title: "Fix &lt;b&gt;bold&lt;/b&gt; rendering"},
		{name: "script in title", title: `<script>alert("x")</script> cleanup`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			in.Title = tt.title
			for _, kind := range []Kind{KindStatusChange, KindApproved} {
				msg := Render(kind, in)
				if strings.ContainsAny(msg.Text, "<>") {
					t.Errorf("%s text contains markup: %q", kind, msg.Text)
				}
				if got := HTMLToText(msg.Text); got != msg.Text {
					t.Errorf("%s text unstable under HTMLToText: %q then %q", kind, msg.Text, got)
				}
			}
		})
	}
}

func TestTextDerivedFromHTML(t *testing.T) {
	msg := Render(KindStatusChange, testInput())
	if got := HTMLToText(msg.HTML); got != msg.Text {
		t.Errorf("Text = %q, HTMLToText(HTML) = %q; want equal", msg.Text, got)
	}
}
