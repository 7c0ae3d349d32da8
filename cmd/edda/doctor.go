package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fagemx/edda/internal/doctor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check ledger chain integrity and coordination-store health",
	Long: `doctor verifies every branch's hash chain and folds the project's
coordination log, reporting one check per branch plus one for malformed
coordination records. Exits non-zero if any check is not ok.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, projectID, err := openWorkspace()
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		defer l.Close()

		report, err := doctor.Run(context.Background(), l, userCoordDir(), projectID)
		if err != nil {
			return fmt.Errorf("run doctor: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			for _, c := range report.Checks {
				fmt.Printf("[%s] %s: %s\n", c.Status, c.Name, c.Message)
				if c.Detail != "" {
					fmt.Printf("       detail: %s\n", c.Detail)
				}
				if c.Fix != "" {
					fmt.Printf("       fix: %s\n", c.Fix)
				}
			}
		}

		if !report.OK() {
			os.Exit(1)
		}
		return nil
	},
}
