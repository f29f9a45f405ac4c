package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the TaskPulse service",
	Long:  `Send a health check request to verify the TaskPulse pipeline service is running and accessible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeHTTPRequest("GET", "/healthz", nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var health struct {
			OK       bool   `json:"ok"`
			Message  string `json:"message"`
			Database bool   `json:"database"`
			Pipeline string `json:"pipeline"`
		}
		if err := decodeResponse(resp, &health); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}

		if outputJSON {
			printOutput(health)
			return nil
		}

		if health.OK {
			fmt.Printf("Pong! Service is healthy (pipeline: %s)\n", health.Pipeline)
		} else {
			fmt.Printf("Service is degraded: %s (pipeline: %s)\n", health.Message, health.Pipeline)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
