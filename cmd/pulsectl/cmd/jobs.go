package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// jobsCmd represents the jobs command group
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage delivery jobs",
	Long:  `Inspect delivery jobs in the pipeline queue, view aggregate statistics, and cancel pending jobs.`,
}

// jobsGetCmd represents the jobs get command
var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one delivery job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("GET", "/v1/jobs/"+args[0], nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var job map[string]interface{}
		if err := decodeResponse(resp, &job); err != nil {
			return fmt.Errorf("job fetch failed: %w", err)
		}

		if outputJSON {
			printOutput(job)
			return nil
		}

		fmt.Printf("Job:      %v\n", job["id"])
		fmt.Printf("Kind:     %v\n", job["kind"])
		fmt.Printf("Status:   %v\n", job["status"])
		fmt.Printf("Priority: %v\n", job["priority"])
		fmt.Printf("Retries:  %v/%v\n", job["retries"], job["max_retries"])
		if lastErr, ok := job["last_error"].(string); ok && lastErr != "" {
			fmt.Printf("Error:    %s\n", lastErr)
		}
		return nil
	},
}

// jobsStatsCmd represents the jobs stats command
var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show delivery job counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("GET", "/v1/jobs/stats", nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var stats struct {
			Pending    int `json:"pending"`
			Processing int `json:"processing"`
			Sent       int `json:"sent"`
			Failed     int `json:"failed"`
			Cancelled  int `json:"cancelled"`
			Total      int `json:"total"`
		}
		if err := decodeResponse(resp, &stats); err != nil {
			return fmt.Errorf("stats fetch failed: %w", err)
		}

		if outputJSON {
			printOutput(stats)
			return nil
		}

		fmt.Printf("Pending:    %d\n", stats.Pending)
		fmt.Printf("Processing: %d\n", stats.Processing)
		fmt.Printf("Sent:       %d\n", stats.Sent)
		fmt.Printf("Failed:     %d\n", stats.Failed)
		fmt.Printf("Cancelled:  %d\n", stats.Cancelled)
		fmt.Printf("Total:      %d\n", stats.Total)
		return nil
	},
}

// jobsCancelCmd represents the jobs cancel command
var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending delivery job",
	Long:  `Cancel a pending delivery job. Jobs already picked up by the dispatcher run to completion and cannot be cancelled.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("POST", "/v1/jobs/"+args[0]+"/cancel", nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if err := decodeResponse(resp, nil); err != nil {
			return err
		}

		fmt.Printf("Job %s cancelled\n", args[0])
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	rootCmd.AddCommand(jobsCmd)
}
