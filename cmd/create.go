package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/airdrop"
	"github.com/speedrun-hq/airdropper/pkg/amount"
	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/confirm"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/merkle"
	"github.com/speedrun-hq/airdropper/pkg/models"
	"github.com/speedrun-hq/airdropper/pkg/progress"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
	"github.com/speedrun-hq/airdropper/pkg/signer"
	"github.com/speedrun-hq/airdropper/pkg/whitelist"
)

type createOptions struct {
	title         string
	token         string
	total         string
	nft           bool
	recipients    uint64
	walletsPath   string
	contentID     string
	start         string
	duration      time.Duration
	gasMultiplier float64
}

func newCreateCmd() *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a distribution, approving the token first when needed",
		Long: `Creates a distribution signed with PRIVATE_KEY. With --wallets the distribution is
whitelist-only: the root is built from the ordered list and the list is uploaded to
WHITELIST_UPLOAD_URL when configured. Without --wallets it is public and --recipients sets
how many wallets may claim.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Distribution title")
	cmd.Flags().StringVar(&opts.token, "token", "", "Token address or well-known symbol")
	cmd.Flags().StringVar(&opts.total, "amount", "", "Total amount in whole tokens, e.g. 1000.5")
	cmd.Flags().BoolVar(&opts.nft, "nft", false, "Token is an ERC1155/ERC721 collection")
	cmd.Flags().Uint64Var(&opts.recipients, "recipients", 0, "Number of claims for a public distribution")
	cmd.Flags().StringVar(&opts.walletsPath, "wallets", "", "File with the ordered wallet list for a whitelist-only distribution")
	cmd.Flags().StringVar(&opts.contentID, "cid", "", "Content id of an already uploaded wallet list")
	cmd.Flags().StringVar(&opts.start, "start", "", "Start time (RFC3339), defaults to one minute from now")
	cmd.Flags().DurationVar(&opts.duration, "duration", 7*24*time.Hour, "How long the distribution stays open")
	cmd.Flags().Float64Var(&opts.gasMultiplier, "gas-multiplier", signer.DefaultGasMultiplier, "Multiplier applied to estimated gas")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runCreate(cmd *cobra.Command, opts createOptions) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.cfg.RequirePrivateKey(); err != nil {
		return err
	}
	chainID := a.cfg.ChainID
	onProgress := progress.ToLogger(a.logger, chainID)

	tokenAddr, err := resolveToken(chainID, opts.token)
	if err != nil {
		return err
	}

	start := time.Now().Add(time.Minute)
	if opts.start != "" {
		if start, err = time.Parse(time.RFC3339, opts.start); err != nil {
			return fmt.Errorf("invalid --start value: %v", err)
		}
	}

	intent := models.AirdropIntent{
		Title:          opts.title,
		TokenAddress:   tokenAddr.Hex(),
		IsFungible:     !opts.nft,
		TotalAmount:    opts.total,
		RecipientCount: opts.recipients,
		StartTime:      start.Unix(),
		EndTime:        start.Add(opts.duration).Unix(),
	}

	if opts.walletsPath != "" {
		if err := a.attachWhitelist(cmd, &intent, opts); err != nil {
			return err
		}
	}

	client, err := rpcpool.Acquire(ctx, a.pool, onProgress)
	if err != nil {
		return err
	}
	defer client.Close()
	backend, ok := client.(signer.Backend)
	if !ok {
		return errors.New("RPC client cannot send transactions")
	}

	keySigner, err := signer.NewKeySigner(ctx, backend, a.cfg.PrivateKey, opts.gasMultiplier, a.logger)
	if err != nil {
		return err
	}
	a.logger.InfoWithChain(chainID, "Creating %q from %s", intent.Title, keySigner.Address().Hex())

	if err := a.checkBalance(cmd, intent, keySigner.Address()); err != nil {
		return err
	}

	poller := confirm.NewPoller(a.pool, a.cfg.PollerConfig(), chainID, a.logger)
	orchestrator := airdrop.New(keySigner, a.service, poller, a.cfg.OrchestratorConfig(), a.logger)

	result, err := orchestrator.Run(ctx, intent, airdrop.Hooks{
		OnProgress: onProgress,
		OnStateChange: func(from, to airdrop.State) {
			a.logger.DebugWithChain(chainID, "State %s -> %s", from, to)
		},
		OnSignatureRequested: func(step airdrop.Step) {
			a.logger.InfoWithChain(chainID, "Signing %s", step)
		},
		OnSigned: func(step airdrop.Step, hash common.Hash) {
			a.logger.InfoWithChain(chainID, "Submitted %s: %s", step, hash.Hex())
		},
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total:     %s %s\n", amount.FormatUnits(result.TotalAmount, result.Token.Decimals), result.Token.Symbol)
	fmt.Fprintf(out, "Per claim: %s %s\n", amount.FormatUnits(result.AmountPerClaim, result.Token.Decimals), result.Token.Symbol)
	if result.Remainder.Sign() > 0 {
		fmt.Fprintf(out, "Not distributed (rounding): %s %s\n", amount.FormatUnits(result.Remainder, result.Token.Decimals), result.Token.Symbol)
	}
	fmt.Fprintf(out, "Transaction: %s\n", result.Receipt.TxHash.Hex())
	fmt.Fprintf(out, "Link: %s\n", result.Link)
	return nil
}

// attachWhitelist sets the root, recipient count and content id from the wallet list
func (a *app) attachWhitelist(cmd *cobra.Command, intent *models.AirdropIntent, opts createOptions) error {
	ctx := cmd.Context()

	wallets, err := readWallets(opts.walletsPath)
	if err != nil {
		return err
	}
	root, err := merkle.BuildRoot(wallets)
	if err != nil {
		return err
	}
	intent.MerkleRoot = root
	intent.RecipientCount = uint64(len(wallets))

	store := whitelist.New(a.cfg.Whitelist.UploadURL, a.cfg.Whitelist.Gateways, a.logger)
	if opts.contentID != "" {
		ok, err := store.VerifyRoot(ctx, opts.contentID, root)
		if err != nil {
			return fmt.Errorf("failed to verify whitelist %s: %w", opts.contentID, err)
		}
		if !ok {
			return fmt.Errorf("whitelist %s does not match root %s", opts.contentID, merkle.RootHex(root))
		}
		intent.WhitelistContentID = opts.contentID
		return nil
	}

	cid, err := store.Upload(ctx, wallets)
	if errors.Is(err, whitelist.ErrUploadDisabled) {
		a.logger.Warning("WHITELIST_UPLOAD_URL not set, claimers will need the wallet list to build proofs")
		return nil
	}
	if err != nil {
		return err
	}
	intent.WhitelistContentID = cid
	return nil
}

// checkBalance fails early when the sender holds less than the total of a fungible token.
// Token read failures are left for the submission to report.
func (a *app) checkBalance(cmd *cobra.Command, intent models.AirdropIntent, owner common.Address) error {
	ctx := cmd.Context()
	if !intent.IsFungible {
		return nil
	}

	info, err := a.service.TokenInfo(ctx, intent.Token(), intent.IsFungible)
	if err != nil {
		return nil
	}
	total, err := amount.ParseUnits(intent.TotalAmount, info.Decimals)
	if err != nil {
		return err
	}
	balance, err := a.service.BalanceOf(ctx, intent.Token(), owner)
	if err != nil {
		a.logger.Warning("Could not read balance: %v", err)
		return nil
	}

	a.logger.InfoWithChain(a.cfg.ChainID, "Balance: %s %s", amount.FormatUnits(balance, info.Decimals), info.Symbol)
	if balance.Cmp(total) < 0 {
		return airdroperrors.NewInsufficientFundsError(fmt.Errorf("balance %s %s is below the total %s",
			amount.FormatUnits(balance, info.Decimals), info.Symbol, intent.TotalAmount))
	}
	return nil
}

func resolveToken(chainID int, token string) (common.Address, error) {
	if known, ok := chains.LookupToken(chainID, token); ok {
		return known.Address, nil
	}
	if !common.IsHexAddress(token) {
		return common.Address{}, airdroperrors.NewInvalidInputError("unknown token %q, use an address or one of the symbols from 'tokens'", token)
	}
	return common.HexToAddress(token), nil
}
