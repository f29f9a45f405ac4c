package feed

import "context"

// Event is one observed change of a task's status field
type Event struct {
	TaskID       string            `json:"task_id"`
	OldStatus    string            `json:"old_status"`
	NewStatus    string            `json:"new_status"`
	ChangedBy    string            `json:"changed_by"`
	TraceHeaders map[string]string `json:"trace_headers,omitempty"`
}

// Handler consumes one change event
type Handler func(ctx context.Context, ev Event)

// ChangeFeed is the subscription boundary to the external change stream.
// Subscribe registers the handler and starts delivery; Unsubscribe stops it.
type ChangeFeed interface {
	Subscribe(h Handler) error
	Unsubscribe()
}
