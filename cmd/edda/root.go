// Command edda is the operator-facing CLI: doctor, verify, gc, and watch
// subcommands that inspect or maintain a workspace's ledger and coordination
// store, wired the way the teacher's cmd/bd root wires its subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "edda",
	Short: "Operate on an edda workspace's decision ledger",
	Long: `edda maintains the local-first decision-memory substrate that the
edda-hook process writes to during a coding session: doctor reports ledger
and coordination-store health, verify walks every branch's hash chain, gc
reclaims unreferenced blobs, and watch tails live coordination-log activity.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
