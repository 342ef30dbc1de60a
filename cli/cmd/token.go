package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"medchain/core/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue bearer tokens for a node's JWT secret",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign an HS256 token for a doctor, patient or admin",
	Example: `  medchainctl token issue --sub D1 --role doctor
  MEDCHAIN_TOKEN=$(medchainctl token issue --sub P1 --role patient) medchainctl request pending P1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		sub, _ := cmd.Flags().GetString("sub")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if secret == "" {
			return fmt.Errorf("--secret or MEDCHAIN_JWT_SECRET is required")
		}
		if sub == "" {
			return fmt.Errorf("--sub is required")
		}
		switch role {
		case auth.RoleDoctor, auth.RolePatient, auth.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q", role)
		}
		signed, err := auth.Issue(secret, sub, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().String("secret", os.Getenv("MEDCHAIN_JWT_SECRET"), "Shared JWT secret")
	tokenIssueCmd.Flags().String("sub", "", "Subject: doctor or patient id (required)")
	tokenIssueCmd.Flags().String("role", auth.RoleDoctor, "Role: doctor|patient|admin")
	tokenIssueCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}
