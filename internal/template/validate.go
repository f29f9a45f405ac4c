package template

import "net/url"

// ValidateInput returns the names of required fields that are missing or
// malformed. AssignerName and AssigneeName are optional; everything else is
// required, and TaskURL must also parse as a request URI. Callers should
// refuse to enqueue when the result is non-empty.
func ValidateInput(in Input) []string {
	var bad []string
	if in.TaskID == "" {
		bad = append(bad, "task_id")
	}
	if in.Title == "" {
		bad = append(bad, "title")
	}
	if in.ProjectName == "" {
		bad = append(bad, "project_name")
	}
	if in.OldStatus == "" {
		bad = append(bad, "old_status")
	}
	if in.NewStatus == "" {
		bad = append(bad, "new_status")
	}
	if in.ChangedBy == "" {
		bad = append(bad, "changed_by")
	}
	if in.ChangedAt.IsZero() {
		bad = append(bad, "changed_at")
	}
	if in.TaskURL == "" {
		bad = append(bad, "task_url")
	} else if _, err := url.ParseRequestURI(in.TaskURL); err != nil {
		bad = append(bad, "task_url")
	}
	return bad
}
