package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/merkle"
)

func newMerkleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merkle",
		Short: "Build whitelist roots and proofs offline",
	}

	cmd.AddCommand(newMerkleRootCmd())
	cmd.AddCommand(newMerkleProofCmd())

	return cmd
}

func newMerkleRootCmd() *cobra.Command {
	var walletsPath string

	cmd := &cobra.Command{
		Use:   "root",
		Short: "Print the Merkle root of a wallet list",
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, err := readWallets(walletsPath)
			if err != nil {
				return err
			}

			root, err := merkle.BuildRoot(wallets)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merkle root: %s\nWallets: %d\n", merkle.RootHex(root), len(wallets))
			return nil
		},
	}

	cmd.Flags().StringVar(&walletsPath, "wallets", "", "File with the ordered wallet list (JSON array or one address per line)")
	_ = cmd.MarkFlagRequired("wallets")

	return cmd
}

func newMerkleProofCmd() *cobra.Command {
	var (
		walletsPath string
		wallet      string
	)

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Print the Merkle proof of one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, err := readWallets(walletsPath)
			if err != nil {
				return err
			}

			proof, err := merkle.ProofFor(wallets, wallet)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Proof for %s (%d nodes):\n", wallet, len(proof))
			for _, node := range proof {
				fmt.Fprintln(out, node.Hex())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&walletsPath, "wallets", "", "File with the ordered wallet list")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet to prove")
	_ = cmd.MarkFlagRequired("wallets")
	_ = cmd.MarkFlagRequired("wallet")

	return cmd
}
