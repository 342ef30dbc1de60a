package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"medchain/core/state"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Access request operations (create, approve, reject, etc)",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an access request as a doctor",
	Example: `  medchainctl request create --doctor D1 --patient P1
  medchainctl request create --doctor D1 --patient P1 --purpose second_opinion`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doctor, _ := cmd.Flags().GetString("doctor")
		patient, _ := cmd.Flags().GetString("patient")
		purpose, _ := cmd.Flags().GetString("purpose")
		if doctor == "" || patient == "" {
			return fmt.Errorf("--doctor and --patient are required")
		}
		out, err := client(cmd).CreateRequest(doctor, patient, purpose)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Request created at block %d (purpose %s)\n", out.BlockIndex, out.Request.Purpose)
		return nil
	},
}

func decisionCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <blockIndex>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("block index: %w", err)
			}
			c := client(cmd)
			decide := c.Approve
			if verb == "reject" {
				decide = c.Reject
			}
			out, err := decide(idx)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s request %d (block %d)\n", out.Message, out.RequestBlockIndex, out.BlockIndex)
			return nil
		},
	}
}

var requestPendingCmd = &cobra.Command{
	Use:   "pending <patientId>",
	Short: "List a patient's pending requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := client(cmd).Pending(args[0])
		if err != nil {
			return err
		}
		return printViews(cmd, views)
	},
}

var requestHistoryCmd = &cobra.Command{
	Use:   "history <doctorId>",
	Short: "List a doctor's requests with their status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := client(cmd).History(args[0])
		if err != nil {
			return err
		}
		return printViews(cmd, views)
	},
}

func printViews(cmd *cobra.Command, views []state.RequestView) error {
	w := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(w, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(w, "No requests.")
		return nil
	}
	for _, v := range views {
		writeView(w, v)
	}
	return nil
}

func writeView(w io.Writer, v state.RequestView) {
	fmt.Fprintf(w, "#%-5d %-9s doctor=%s patient=%s purpose=%s created=%s\n",
		v.BlockIndex, v.Status, v.DoctorRef, v.PatientRef, v.Purpose, v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestCreateCmd)
	requestCmd.AddCommand(decisionCmd("approve", "Approve a pending request"))
	requestCmd.AddCommand(decisionCmd("reject", "Reject a pending request"))
	requestCmd.AddCommand(requestPendingCmd)
	requestCmd.AddCommand(requestHistoryCmd)

	requestCreateCmd.Flags().String("doctor", "", "Doctor ID (required)")
	requestCreateCmd.Flags().String("patient", "", "Patient ID (required)")
	requestCreateCmd.Flags().String("purpose", "", "Purpose (default medical_review)")
}
