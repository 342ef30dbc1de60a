package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query node health summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := client(cmd).GetHealthMetrics()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOutput(cmd) {
			return printJSON(w, health)
		}
		fmt.Fprintf(w, "Node Health: %s\n", health.Status)
		fmt.Fprintf(w, "Uptime: %ds\n", health.Metrics.UptimeSeconds)
		fmt.Fprintf(w, "Block Height: %d\n", health.Metrics.BlockHeight)
		fmt.Fprintf(w, "Difficulty: %d\n", health.Metrics.Difficulty)
		fmt.Fprintf(w, "Chain Valid: %v\n", health.Metrics.ChainValid)
		fmt.Fprintf(w, "CPU Load: %.2f%%\n", health.Metrics.CPULoadPercent)
		fmt.Fprintf(w, "Memory Usage: %.2f MB\n", health.Metrics.MemoryMB)
		fmt.Fprintf(w, "Disk Free: %.2f MB\n", health.Metrics.DiskFreeMB)
		fmt.Fprintf(w, "Last Block Time: %s\n", health.Metrics.LastBlockTime)
		return nil
	},
}

var livenessCmd = &cobra.Command{
	Use:   "liveness",
	Short: "Check node liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		alive, err := client(cmd).GetLiveness()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Liveness: %v\n", alive)
		return nil
	},
}

var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Check node readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ready, err := client(cmd).GetReadiness()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Readiness: %v\n", ready)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(livenessCmd)
	rootCmd.AddCommand(readinessCmd)
}
