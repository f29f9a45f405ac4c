package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command group
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	Long:  `Fetch the aggregate pipeline status: lifecycle state, listener activity, job counts, health tier, and accumulated errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("GET", "/v1/pipeline/status", nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var status struct {
			State          string `json:"state"`
			Initialized    bool   `json:"initialized"`
			ListenerActive bool   `json:"listener_active"`
			Jobs           struct {
				Pending    int `json:"pending"`
				Processing int `json:"processing"`
				Sent       int `json:"sent"`
				Failed     int `json:"failed"`
				Cancelled  int `json:"cancelled"`
				Total      int `json:"total"`
			} `json:"jobs"`
			LastHealthCheck string   `json:"last_health_check"`
			Health          string   `json:"health"`
			Errors          []string `json:"errors"`
			Warnings        []string `json:"warnings"`
		}
		if err := decodeResponse(resp, &status); err != nil {
			return fmt.Errorf("status fetch failed: %w", err)
		}

		if outputJSON {
			printOutput(status)
			return nil
		}

		fmt.Printf("State:     %s\n", status.State)
		fmt.Printf("Listener:  active=%t\n", status.ListenerActive)
		fmt.Printf("Health:    %s\n", status.Health)
		fmt.Printf("Jobs:      pending=%d processing=%d sent=%d failed=%d cancelled=%d total=%d\n",
			status.Jobs.Pending, status.Jobs.Processing, status.Jobs.Sent,
			status.Jobs.Failed, status.Jobs.Cancelled, status.Jobs.Total)
		if status.LastHealthCheck != "" {
			fmt.Printf("Last check: %s\n", status.LastHealthCheck)
		}
		for _, e := range status.Errors {
			fmt.Printf("Error:     %s\n", e)
		}
		for _, w := range status.Warnings {
			fmt.Printf("Warning:   %s\n", w)
		}
		return nil
	},
}

// clearErrorsCmd represents the status clear-errors subcommand
var clearErrorsCmd = &cobra.Command{
	Use:   "clear-errors",
	Short: "Clear accumulated pipeline errors and warnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("POST", "/v1/pipeline/errors/clear", nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if err := decodeResponse(resp, nil); err != nil {
			return err
		}

		fmt.Println("Pipeline errors cleared")
		return nil
	},
}

func init() {
	statusCmd.AddCommand(clearErrorsCmd)
	rootCmd.AddCommand(statusCmd)
}
