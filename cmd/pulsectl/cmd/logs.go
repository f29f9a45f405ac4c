package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	logsLevel string
	logsLimit int
	logsJobID string
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the pipeline event log",
	Long:  `Query the pipeline's in-memory event log, newest entries first. Filter by level or delivery job id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if logsLevel != "" {
			q.Set("level", logsLevel)
		}
		if logsLimit > 0 {
			q.Set("limit", strconv.Itoa(logsLimit))
		}
		if logsJobID != "" {
			q.Set("job_id", logsJobID)
		}

		path := "/v1/logs"
		if enc := q.Encode(); enc != "" {
			path += "?" + enc
		}
		resp, err := makeHTTPRequest("GET", path, nil)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		var result struct {
			Entries []struct {
				ID      string `json:"id"`
				Time    string `json:"time"`
				Level   string `json:"level"`
				Message string `json:"msg"`
				JobID   string `json:"job_id"`
				Error   string `json:"error"`
			} `json:"entries"`
			Stats struct {
				Debug int `json:"debug"`
				Info  int `json:"info"`
				Warn  int `json:"warn"`
				Error int `json:"error"`
				Total int `json:"total"`
			} `json:"stats"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return fmt.Errorf("log query failed: %w", err)
		}

		if outputJSON {
			printOutput(result)
			return nil
		}

		for _, e := range result.Entries {
			line := fmt.Sprintf("%s [%s] %s", e.Time, e.Level, e.Message)
			if e.JobID != "" {
				line += " job=" + e.JobID
			}
			if e.Error != "" {
				line += " error=" + e.Error
			}
			fmt.Println(line)
		}
		fmt.Printf("\n%d entries shown (buffered: debug=%d info=%d warn=%d error=%d total=%d)\n",
			len(result.Entries), result.Stats.Debug, result.Stats.Info,
			result.Stats.Warn, result.Stats.Error, result.Stats.Total)
		return nil
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "filter by level (debug, info, warn, error)")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "maximum entries to return")
	logsCmd.Flags().StringVar(&logsJobID, "job", "", "filter by delivery job id")
	rootCmd.AddCommand(logsCmd)
}
