package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit <patientId>",
	Short: "Show a patient's audit trail, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trail, err := client(cmd).Audit(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOutput(cmd) {
			return printJSON(w, trail)
		}
		for _, e := range trail.Entries {
			fmt.Fprintf(w, "%s  block %-5d %-17s request=%d doctor=%s\n",
				e.Timestamp.Format(time.RFC3339), e.BlockIndex, e.Event, e.RequestBlockIndex, e.DoctorRef)
		}
		if trail.Orphans > 0 {
			fmt.Fprintf(w, "warning: %d decision(s) reference blocks that are not requests\n", trail.Orphans)
		}
		return nil
	},
}

var accessCmd = &cobra.Command{
	Use:   "access <doctorId> <patientId>",
	Short: "Check whether a doctor may read a patient's records",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := client(cmd).Access(args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Authorized: %v\n", out.Authorized)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(accessCmd)
}
