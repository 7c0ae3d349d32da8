package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fagemx/edda/internal/gc"
)

var gcRetention time.Duration

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Tombstone unpinned, unreferenced blobs older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, err := openWorkspace()
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		defer l.Close()

		report, err := gc.Run(context.Background(), l, gcRetention, time.Now())
		if err != nil {
			return fmt.Errorf("run gc: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("scanned %d blob(s): %d tombstoned, %d retained (pinned), %d retained (referenced), %d retained (fresh)\n",
			report.Scanned, len(report.Tombstoned), report.RetainedPin, report.RetainedRef, report.Retained)
		for _, hash := range report.Tombstoned {
			fmt.Printf("  tombstoned %s\n", hash)
		}
		return nil
	},
}

func init() {
	gcCmd.Flags().DurationVar(&gcRetention, "retention", gc.DefaultRetention, "minimum age before an unreferenced blob is eligible for collection")
}
