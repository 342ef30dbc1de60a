package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"medchain/cli/api"
)

var rootCmd = &cobra.Command{
	Use:           "medchainctl",
	Short:         "medchain ledger CLI",
	Long:          "A command-line tool for querying a medchain node and inspecting chain snapshots offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("node", envOr("MEDCHAIN_NODE", api.DefaultNode), "Node base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("MEDCHAIN_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringP("output", "o", "plain", "Output format: plain|json")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func client(cmd *cobra.Command) *api.Client {
	node, _ := cmd.Flags().GetString("node")
	token, _ := cmd.Flags().GetString("token")
	return api.New(node, token)
}

func jsonOutput(cmd *cobra.Command) bool {
	out, _ := cmd.Flags().GetString("output")
	return out == "json"
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
