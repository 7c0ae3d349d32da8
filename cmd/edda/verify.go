package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [branch]",
	Short: "Walk a branch's hash chain and report the first divergence",
	Long: `verify recomputes every event's hash and checks it against the next
event's parent_hash, stopping at the first mismatch. With no branch argument
it verifies every branch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, err := openWorkspace()
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		defer l.Close()

		ctx := context.Background()
		var branches []string
		if len(args) > 0 {
			branches = args
		} else {
			infos, err := l.ListBranches(ctx)
			if err != nil {
				return fmt.Errorf("list branches: %w", err)
			}
			for _, bi := range infos {
				branches = append(branches, bi.Name)
			}
		}

		allOK := true
		for _, branch := range branches {
			report, err := l.Verify(ctx, branch)
			if err != nil {
				return fmt.Errorf("verify %s: %w", branch, err)
			}
			if !report.OK {
				allOK = false
			}
			if jsonOutput {
				data, err := json.Marshal(report)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				continue
			}
			if report.OK {
				fmt.Printf("%s: ok (%d events)\n", branch, report.EventsWalked)
			} else {
				fmt.Printf("%s: DIVERGED at %s: %s\n", branch, report.DivergentEventID, report.Detail)
			}
		}

		if !allOK {
			os.Exit(1)
		}
		return nil
	},
}
