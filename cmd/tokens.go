package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/config"
)

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List well-known tokens of the configured chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := config.GetEnvChainID()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tokens := chains.KnownTokens(chainID)
			if len(tokens) == 0 {
				fmt.Fprintf(out, "No known tokens for chain %d\n", chainID)
				return nil
			}
			for _, t := range tokens {
				fmt.Fprintf(out, "%-8s %s  %s (%d decimals)\n", t.Symbol, t.Address.Hex(), t.Name, t.Decimals)
			}
			return nil
		},
	}
}
