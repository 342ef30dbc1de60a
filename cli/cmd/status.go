package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query node status",
	Example: `  medchainctl status
  medchainctl status --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := client(cmd).GetStatus()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOutput(cmd) {
			return printJSON(w, status)
		}
		fmt.Fprintf(w, "Status: %s\nHeight: %d\nVersion: %s (api %s)\nLast Block: %s\n",
			status.Status, status.BlockHeight, status.Version, status.APIVersion, status.LastBlock)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
