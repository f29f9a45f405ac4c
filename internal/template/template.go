package template

import (
	"fmt"
	"html"
	"time"
)

// Kind selects which message shape Render produces
type Kind string

const (
	KindStatusChange        Kind = "status-change"
	KindAssigned            Kind = "assigned"
	KindApproved            Kind = "approved"
	KindRejected            Kind = "rejected"
	KindWaitingConfirmation Kind = "waiting-confirmation"
)

// Task status values observed on the change feed
const (
	StatusOpen           = "OPEN"
	StatusAssigned       = "ASSIGNED"
	StatusInProgress     = "IN_PROGRESS"
	StatusWaitingConfirm = "WAITING_CONFIRM"
	StatusApproved       = "APPROVED"
	StatusRejected       = "REJECTED"
	StatusDone           = "DONE"
)

// Input is the structured description of one status-change event.
// Immutable once constructed; AssignerName and AssigneeName are the only
// optional fields.
type Input struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	ProjectName  string    `json:"project_name"`
	OldStatus    string    `json:"old_status"`
	NewStatus    string    `json:"new_status"`
	ChangedBy    string    `json:"changed_by"`
	ChangedAt    time.Time `json:"changed_at"`
	TaskURL      string    `json:"task_url"`
	AssignerName string    `json:"assigner_name,omitempty"`
	AssigneeName string    `json:"assignee_name,omitempty"`
}

// Message is a rendered notification
type Message struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// transitionSentences maps (old,new) status pairs to a human sentence for
// the generic status-change template. Pairs not listed fall back to
// genericSentence.
var transitionSentences = map[[2]string]string{
	{StatusOpen, StatusAssigned}:               "The task has been assigned.",
	{StatusOpen, StatusInProgress}:             "Work has started on the task.",
	{StatusAssigned, StatusInProgress}:         "Work has started on the task.",
	{StatusInProgress, StatusWaitingConfirm}:   "The task was submitted for confirmation.",
	{StatusWaitingConfirm, StatusApproved}:     "The task was reviewed and approved.",
	{StatusWaitingConfirm, StatusRejected}:     "The task was reviewed and sent back.",
	{StatusWaitingConfirm, StatusInProgress}:   "The task was returned to work before review.",
	{StatusRejected, StatusInProgress}:         "The task was reopened after rejection.",
	{StatusApproved, StatusDone}:               "The task was closed as done.",
	{StatusInProgress, StatusDone}:             "The task was closed as done.",
	{StatusDone, StatusInProgress}:             "The task was reopened.",
}

const genericSentence = "The task status changed."

// Render turns a template kind and event input into subject, HTML, and
// plain-text bodies. The text body is always derived from the HTML body via
// HTMLToText. Unknown kinds render as the generic status change.
func Render(kind Kind, in Input) Message {
	var subject, body string

	switch kind {
	case KindAssigned:
		subject, body = renderAssigned(in)
	case KindApproved:
		subject, body = renderApproved(in)
	case KindRejected:
		subject, body = renderRejected(in)
	case KindWaitingConfirmation:
		subject, body = renderWaitingConfirmation(in)
	default:
		// Generic kind dispatches by new status when a specialized
		// message exists for it.
		switch in.NewStatus {
		case StatusAssigned:
			subject, body = renderAssigned(in)
		case StatusApproved:
			subject, body = renderApproved(in)
		case StatusRejected:
			subject, body = renderRejected(in)
		case StatusWaitingConfirm:
			subject, body = renderWaitingConfirmation(in)
		default:
			subject, body = renderStatusChange(in)
		}
	}

	htmlBody := wrapHTML(subject, body, in)
	return Message{
		Subject: subject,
		HTML:    htmlBody,
		Text:    HTMLToText(htmlBody),
	}
}

func renderAssigned(in Input) (string, string) {
	subject := fmt.Sprintf("[%s] Task assigned: %s", in.ProjectName, in.Title)
	who := in.AssigneeName
	if who == "" {
		who = "You"
	}
	body := fmt.Sprintf("<p><strong>%s</strong> is now assigned to <strong>%s</strong>.</p>",
		html.EscapeString(who), html.EscapeString(in.Title))
	if in.AssignerName != "" {
		body += fmt.Sprintf("<p>Assigned by %s.</p>", html.EscapeString(in.AssignerName))
	}
	return subject, body
}

func renderApproved(in Input) (string, string) {
	subject := fmt.Sprintf("[%s] Task approved: %s", in.ProjectName, in.Title)
	body := fmt.Sprintf("<p>The task <strong>%s</strong> was approved by %s.</p>",
		html.EscapeString(in.Title), html.EscapeString(in.ChangedBy))
	return subject, body
}

func renderRejected(in Input) (string, string) {
	subject := fmt.Sprintf("[%s] Task rejected: %s", in.ProjectName, in.Title)
	body := fmt.Sprintf("<p>The task <strong>%s</strong> was rejected by %s and needs rework.</p>",
		html.EscapeString(in.Title), html.EscapeString(in.ChangedBy))
	return subject, body
}

func renderWaitingConfirmation(in Input) (string, string) {
	subject := fmt.Sprintf("[%s] Awaiting confirmation: %s", in.ProjectName, in.Title)
	body := fmt.Sprintf("<p>The task <strong>%s</strong> is waiting for your confirmation.</p>",
		html.EscapeString(in.Title))
	if in.AssigneeName != "" {
		body += fmt.Sprintf("<p>Completed by %s.</p>", html.EscapeString(in.AssigneeName))
	}
	return subject, body
}

func renderStatusChange(in Input) (string, string) {
	subject := fmt.Sprintf("[%s] Task updated: %s", in.ProjectName, in.Title)
	sentence, ok := transitionSentences[[2]string{in.OldStatus, in.NewStatus}]
	if !ok {
		sentence = genericSentence
	}
	body := fmt.Sprintf("<p>%s</p><p><strong>%s</strong> moved from %s to %s.</p>",
		sentence,
		html.EscapeString(in.Title),
		html.EscapeString(in.OldStatus),
		html.EscapeString(in.NewStatus))
	return subject, body
}

// wrapHTML wraps a body fragment with the shared header and footer
func wrapHTML(subject, body string, in Input) string {
	return fmt.Sprintf(
		`<html><body><h2>%s</h2>%s<p>Project: %s<br>Changed by: %s at %s</p><p><a href="%s">Open the task</a></p></body></html>`,
		html.EscapeString(subject),
		body,
		html.EscapeString(in.ProjectName),
		html.EscapeString(in.ChangedBy),
		in.ChangedAt.Format(time.RFC3339),
		in.TaskURL,
	)
}
