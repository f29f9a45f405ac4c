package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	enqueueKind       string
	enqueueRecipients []string
	enqueuePriority   string
	enqueueMaxRetries int
	enqueueTaskID     string
	enqueueTitle      string
	enqueueProject    string
	enqueueOldStatus  string
	enqueueNewStatus  string
	enqueueChangedBy  string
	enqueueTaskURL    string
)

// enqueueCmd represents the enqueue command
var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue an ad-hoc notification job",
	Long: `Enqueue a notification delivery job directly, bypassing the change
feed. Useful for testing templates and transport connectivity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"kind": enqueueKind,
			"input": map[string]interface{}{
				"task_id":      enqueueTaskID,
				"title":        enqueueTitle,
				"project_name": enqueueProject,
				"old_status":   enqueueOldStatus,
				"new_status":   enqueueNewStatus,
				"changed_by":   enqueueChangedBy,
				"changed_at":   time.Now().Format(time.RFC3339),
				"task_url":     enqueueTaskURL,
			},
			"recipients": enqueueRecipients,
		}
		if enqueuePriority != "" {
			body["priority"] = enqueuePriority
		}
		if enqueueMaxRetries > 0 {
			body["max_retries"] = enqueueMaxRetries
		}

		resp, err := makeHTTPRequest("POST", "/v1/jobs", body)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var result struct {
			JobID string `json:"job_id"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return fmt.Errorf("enqueue failed: %w", err)
		}

		if outputJSON {
			printOutput(result)
		} else {
			fmt.Printf("Job enqueued: %s\n", result.JobID)
		}
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueKind, "kind", "status-change", "template kind")
	enqueueCmd.Flags().StringSliceVar(&enqueueRecipients, "to", nil, "recipient addresses (repeatable)")
	enqueueCmd.Flags().StringVar(&enqueuePriority, "priority", "", "job priority (low, normal, high)")
	enqueueCmd.Flags().IntVar(&enqueueMaxRetries, "max-retries", 0, "override max delivery retries")
	enqueueCmd.Flags().StringVar(&enqueueTaskID, "task", "", "task id")
	enqueueCmd.Flags().StringVar(&enqueueTitle, "title", "", "task title")
	enqueueCmd.Flags().StringVar(&enqueueProject, "project", "", "project name")
	enqueueCmd.Flags().StringVar(&enqueueOldStatus, "old", "", "old task status")
	enqueueCmd.Flags().StringVar(&enqueueNewStatus, "new", "", "new task status")
	enqueueCmd.Flags().StringVar(&enqueueChangedBy, "by", "pulsectl", "actor who changed the status")
	enqueueCmd.Flags().StringVar(&enqueueTaskURL, "url", "", "task deep link")
	_ = enqueueCmd.MarkFlagRequired("to")
	_ = enqueueCmd.MarkFlagRequired("task")
	_ = enqueueCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(enqueueCmd)
}
