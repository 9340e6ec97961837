package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/amount"
	"github.com/speedrun-hq/airdropper/pkg/merkle"
	"github.com/speedrun-hq/airdropper/pkg/models"
)

func newDistributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "distribution",
		Aliases: []string{"dist"},
		Short:   "Read distributions from the distributor contract",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Show the most recently created distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			id, err := a.service.LatestDistributionID(cmd.Context())
			if err != nil {
				return err
			}
			return a.printDistribution(cmd.Context(), cmd.OutOrStdout(), id)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.printDistribution(cmd.Context(), cmd.OutOrStdout(), id)
		},
	})

	cmd.AddCommand(newClaimedCmd())
	cmd.AddCommand(newWhitelistedCmd())

	return cmd
}

func newClaimedCmd() *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "claimed <id>",
		Short: "Check whether a wallet has claimed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			addr, err := merkle.NormalizeAddress(wallet)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			claimed, err := a.service.IsClaimed(cmd.Context(), id, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s claimed from #%d: %t\n", addr.Hex(), id, claimed)
			return nil
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet to check")
	_ = cmd.MarkFlagRequired("wallet")

	return cmd
}

func newWhitelistedCmd() *cobra.Command {
	var (
		wallet      string
		walletsPath string
	)

	cmd := &cobra.Command{
		Use:   "whitelisted <id>",
		Short: "Check a wallet against a distribution's whitelist",
		Long: `Builds the wallet's proof from the ordered wallet list, checks it locally against the
distribution's root and then asks the contract.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			wallets, err := readWallets(walletsPath)
			if err != nil {
				return err
			}
			addr, err := merkle.NormalizeAddress(wallet)
			if err != nil {
				return err
			}
			proof, err := merkle.ProofFor(wallets, wallet)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			d, err := a.service.GetDistribution(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !d.IsWhitelistOnly() {
				fmt.Fprintf(out, "Distribution #%d is public, anyone can claim\n", id)
				return nil
			}
			if !merkle.VerifyProof(d.MerkleRoot, addr, proof) {
				fmt.Fprintf(out, "Wallet list does not match root %s of #%d\n", d.MerkleRoot.Hex(), id)
			}

			ok, err := a.service.VerifyWhitelisted(cmd.Context(), id, addr, proof)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s whitelisted on #%d: %t\n", addr.Hex(), id, ok)
			return nil
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet to check")
	cmd.Flags().StringVar(&walletsPath, "wallets", "", "File with the ordered wallet list behind the root")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("wallets")

	return cmd
}

func (a *app) printDistribution(ctx context.Context, out io.Writer, id uint64) error {
	d, err := a.service.GetDistribution(ctx, id)
	if err != nil {
		return err
	}
	if d.Token == (common.Address{}) {
		return fmt.Errorf("distribution %d not found", id)
	}

	perClaim := d.AmountPerClaim.String()
	if info, err := a.service.TokenInfo(ctx, d.Token, d.IsFungible); err == nil {
		perClaim = fmt.Sprintf("%s %s", amount.FormatUnits(d.AmountPerClaim, info.Decimals), info.Symbol)
	} else {
		a.logger.Warning("Could not read token %s: %v", d.Token.Hex(), err)
	}

	writeDistribution(out, d, perClaim, a.service.ClaimLink(id))
	return nil
}

func writeDistribution(out io.Writer, d models.Distribution, perClaim, link string) {
	fmt.Fprintf(out, "Distribution #%d: %s\n", d.ID, d.Title)
	fmt.Fprintf(out, "  Status:    %s\n", d.Status(time.Now()))
	fmt.Fprintf(out, "  Token:     %s\n", d.Token.Hex())
	fmt.Fprintf(out, "  Per claim: %s\n", perClaim)
	fmt.Fprintf(out, "  Claimed:   %d / %d\n", d.ClaimedCount, d.RecipientCount)
	fmt.Fprintf(out, "  Starts:    %s\n", formatUnix(d.StartTime))
	fmt.Fprintf(out, "  Ends:      %s\n", formatUnix(d.EndTime))
	fmt.Fprintf(out, "  Owner:     %s\n", d.Owner.Hex())
	if d.IsWhitelistOnly() {
		fmt.Fprintf(out, "  Whitelist: %s (%s)\n", d.MerkleRoot.Hex(), d.WhitelistContentID)
	} else {
		fmt.Fprintf(out, "  Whitelist: none, public claim\n")
	}
	fmt.Fprintf(out, "  Link:      %s\n", link)
}

func formatUnix(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distribution id %q", s)
	}
	return id, nil
}
