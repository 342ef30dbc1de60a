package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"medchain/core/block"
	"medchain/core/config"
	"medchain/core/node"
	"medchain/core/pow"
	"medchain/core/scan"
	"medchain/core/validation"
)

// ErrChainInvalid is returned by verify when violations are found.
var ErrChainInvalid = errors.New("chain failed validation")

// loadSnapshot reads a snapshot straight from disk. It never creates a
// genesis block or any file.
func loadSnapshot(cmd *cobra.Command) ([]block.Block, error) {
	cfg := config.Default()
	cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	cfg.StoreBackend, _ = cmd.Flags().GetString("backend")
	cfg.ChainFile, _ = cmd.Flags().GetString("chain-file")
	cfg.DEK, _ = cmd.Flags().GetString("dek")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := node.OpenStoreReadOnly(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load()
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate a chain snapshot offline",
	Example: `  medchainctl verify --data-dir ./data
  medchainctl verify --data-dir ./data --backend leveldb --dek $MEDCHAIN_DEK`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		difficulty, _ := cmd.Flags().GetInt("difficulty")
		viols := validation.NewWithDifficulty(difficulty).Diagnose(chain)

		w := cmd.OutOrStdout()
		if jsonOutput(cmd) {
			if err := printJSON(w, map[string]interface{}{"valid": len(viols) == 0, "blocks": len(chain), "violations": viols}); err != nil {
				return err
			}
		} else {
			for _, v := range viols {
				fmt.Fprintln(w, v.Error())
			}
			fmt.Fprintf(w, "%d blocks, %d violation(s)\n", len(chain), len(viols))
		}
		if len(viols) > 0 {
			return ErrChainInvalid
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the blocks of a chain snapshot offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), scan.Summaries(chain))
		}
		scan.Print(cmd.OutOrStdout(), chain)
		return nil
	},
}

func init() {
	def := config.Default()
	for _, c := range []*cobra.Command{verifyCmd, inspectCmd} {
		c.Flags().String("data-dir", def.DataDir, "Node data directory")
		c.Flags().String("backend", def.StoreBackend, "Store backend: file|leveldb")
		c.Flags().String("chain-file", def.ChainFile, "Snapshot file name for the file backend")
		c.Flags().String("dek", "", "Base64 data encryption key for the leveldb backend")
		rootCmd.AddCommand(c)
	}
	verifyCmd.Flags().Int("difficulty", pow.DefaultDifficulty, "Proof-of-work difficulty")
	verifyCmd.Flags().MarkHidden("difficulty")
}
