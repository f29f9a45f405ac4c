package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	transitionTaskID string
	transitionOld    string
	transitionNew    string
	transitionActor  string
)

// transitionCmd represents the transition command
var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Replay a task status transition",
	Long: `Run a status transition through the full pipeline path: entity fetch,
eligibility check, dedup, template selection, and enqueue. The task must
exist in the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"task_id":    transitionTaskID,
			"old_status": transitionOld,
			"new_status": transitionNew,
			"actor":      transitionActor,
		}

		resp, err := makeHTTPRequest("POST", "/v1/transitions", body)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var result struct {
			JobID string `json:"job_id"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return fmt.Errorf("transition rejected: %w", err)
		}

		if outputJSON {
			printOutput(result)
		} else {
			fmt.Printf("Transition accepted, job enqueued: %s\n", result.JobID)
		}
		return nil
	},
}

func init() {
	transitionCmd.Flags().StringVar(&transitionTaskID, "task", "", "task id")
	transitionCmd.Flags().StringVar(&transitionOld, "old", "", "old task status")
	transitionCmd.Flags().StringVar(&transitionNew, "new", "", "new task status")
	transitionCmd.Flags().StringVar(&transitionActor, "by", "pulsectl", "actor who changed the status")
	_ = transitionCmd.MarkFlagRequired("task")
	_ = transitionCmd.MarkFlagRequired("old")
	_ = transitionCmd.MarkFlagRequired("new")
	rootCmd.AddCommand(transitionCmd)
}
