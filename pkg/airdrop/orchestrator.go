// Package airdrop drives one airdrop submission on chain: network check, token validation,
// allowance approval when needed and distribution creation, each write confirmed before the next.
//
// A run is a strict sequence. Its state only moves forward and Failed ends it; retrying means
// calling Run again with the same intent.
package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/airdropper/pkg/amount"
	"github.com/speedrun-hq/airdropper/pkg/contracts"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/metrics"
	"github.com/speedrun-hq/airdropper/pkg/models"
	"github.com/speedrun-hq/airdropper/pkg/progress"
)

const (
	DefaultSignatureTimeout = 120 * time.Second
	DefaultApprovalSettle   = 2 * time.Second
)

// ContractCall is a write the signer is asked to simulate or send.
type ContractCall struct {
	To     common.Address
	Data   []byte
	Method string
}

// Signer is the wallet collaborator. Implementations may block on a human.
type Signer interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	SimulateContract(ctx context.Context, call ContractCall) error
	WriteContract(ctx context.Context, call ContractCall) (common.Hash, error)
}

// ReceiptWaiter resolves a submitted transaction to its receipt. *confirm.Poller satisfies it.
type ReceiptWaiter interface {
	AwaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Hooks receive the side effects of a run, in order. Every field is optional.
type Hooks struct {
	OnStateChange        func(from, to State)
	OnSignatureRequested func(step Step)
	OnSigned             func(step Step, hash common.Hash)
	// OnSuccess gets a nil receipt for StepApproval when the existing allowance was enough.
	OnSuccess  func(step Step, receipt *types.Receipt)
	OnError    func(err error)
	OnProgress progress.Func
}

// Config tunes an Orchestrator.
type Config struct {
	ChainID          int64
	SignatureTimeout time.Duration
	// ApprovalSettle is waited between a confirmed approval and the allowance re-check.
	ApprovalSettle time.Duration
}

// Result describes a completed run.
type Result struct {
	Token          models.TokenInfo
	TotalAmount    *big.Int
	AmountPerClaim *big.Int
	// Remainder is the part of TotalAmount that integer division left out. It is not distributed.
	Remainder       *big.Int
	ApprovalSkipped bool
	ApprovalReceipt *types.Receipt
	Receipt         *types.Receipt
	// DistributionID is only meaningful when IDResolved is true.
	DistributionID uint64
	IDResolved     bool
	Link           string
}

// Orchestrator runs submissions. It holds no per-run state and may run several at once.
type Orchestrator struct {
	signer Signer
	reader *distribution.Service
	waiter ReceiptWaiter
	cfg    Config
	logger logger.Logger
}

// New creates an Orchestrator.
func New(signer Signer, reader *distribution.Service, waiter ReceiptWaiter, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.SignatureTimeout <= 0 {
		cfg.SignatureTimeout = DefaultSignatureTimeout
	}
	if cfg.ApprovalSettle < 0 {
		cfg.ApprovalSettle = 0
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = reader.ChainID()
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Orchestrator{
		signer: signer,
		reader: reader,
		waiter: waiter,
		cfg:    cfg,
		logger: log,
	}
}

// run is the state owned by one submission.
type run struct {
	o      *Orchestrator
	hooks  Hooks
	state  State
	reader *distribution.Service
	result Result
}

// Run submits intent and blocks until the distribution is confirmed or the run fails.
// Failures are reported to hooks.OnError and returned.
func (o *Orchestrator) Run(ctx context.Context, intent models.AirdropIntent, hooks Hooks) (*Result, error) {
	r := &run{
		o:      o,
		hooks:  hooks,
		state:  Idle,
		reader: o.reader.WithProgress(hooks.OnProgress),
	}
	if err := r.execute(ctx, intent); err != nil {
		return nil, r.fail(err)
	}
	metrics.Airdrops.WithLabelValues("completed").Inc()
	return &r.result, nil
}

func (r *run) execute(ctx context.Context, intent models.AirdropIntent) error {
	chainID := int(r.o.cfg.ChainID)

	if err := intent.Validate(); err != nil {
		return err
	}
	if err := r.ensureNetwork(ctx); err != nil {
		return err
	}

	token := intent.Token()
	info, err := r.reader.TokenInfo(ctx, token, intent.IsFungible)
	if err != nil {
		return err
	}
	r.result.Token = info
	r.o.logger.InfoWithChain(chainID, "Token %s (%s) validated, decimals %d", info.Symbol, token.Hex(), info.Decimals)

	decimals := info.Decimals
	if !intent.IsFungible {
		decimals = 0
	}
	total, err := amount.ParseUnits(intent.TotalAmount, decimals)
	if err != nil {
		return err
	}
	perClaim, remainder, err := amount.SplitPerClaim(total, intent.RecipientCount)
	if err != nil {
		return err
	}
	r.result.TotalAmount = total
	r.result.AmountPerClaim = perClaim
	r.result.Remainder = remainder
	if remainder.Sign() > 0 {
		r.o.logger.NoticeWithChain(chainID, "%s of %s units stay undistributed after splitting across %d recipients",
			remainder, total, intent.RecipientCount)
	}

	if err := r.ensureAllowance(ctx, token, total); err != nil {
		return err
	}

	return r.createDistribution(ctx, intent, perClaim)
}

// ensureNetwork asks the signer to switch when it is on another chain.
func (r *run) ensureNetwork(ctx context.Context) error {
	required := big.NewInt(r.o.cfg.ChainID)

	current, err := r.o.signer.ChainID(ctx)
	if err != nil {
		return airdroperrors.NewWrongNetworkError(nil, required, err)
	}
	if current.Cmp(required) == 0 {
		return nil
	}

	r.o.logger.InfoWithChain(int(r.o.cfg.ChainID), "Signer is on chain %v, switching", current)
	if err := r.o.signer.SwitchChain(ctx, required); err != nil {
		return airdroperrors.NewWrongNetworkError(current, required, err)
	}
	current, err = r.o.signer.ChainID(ctx)
	if err != nil || current.Cmp(required) != 0 {
		return airdroperrors.NewWrongNetworkError(current, required, err)
	}
	return nil
}

func (r *run) ensureAllowance(ctx context.Context, token common.Address, total *big.Int) error {
	r.transition(CheckingAllowance)
	r.hooks.OnProgress.Emit(progress.Info, "Checking token allowance...", "Verifying spending permissions")

	owner := r.o.signer.Address()
	allowance, err := r.reader.Allowance(ctx, token, owner)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}

	if allowance.Cmp(total) >= 0 {
		r.o.logger.DebugWithChain(int(r.o.cfg.ChainID), "Allowance %s covers %s, skipping approval", allowance, total)
		metrics.ApprovalsSkipped.Inc()
		r.result.ApprovalSkipped = true
		r.hooks.OnProgress.Emit(progress.Success, "Token allowance verified", "Sufficient spending permissions already exist")
		if r.hooks.OnSuccess != nil {
			r.hooks.OnSuccess(StepApproval, nil)
		}
		return nil
	}

	r.hooks.OnProgress.Emit(progress.Warning, "Insufficient token allowance", "Requesting approval for token spending")

	data, err := contracts.PackApprove(r.o.reader.Distributor(), total)
	if err != nil {
		return err
	}
	receipt, err := r.submit(ctx, StepApproval, ContractCall{To: token, Data: data, Method: "approve"},
		ApprovalSigning, ApprovalConfirming, ApprovalComplete)
	if err != nil {
		return err
	}
	r.result.ApprovalReceipt = receipt

	if err := sleep(ctx, r.o.cfg.ApprovalSettle); err != nil {
		return err
	}
	current, err := r.reader.Allowance(ctx, token, owner)
	if err != nil {
		return fmt.Errorf("failed to re-check allowance: %w", err)
	}
	if current.Cmp(total) < 0 {
		return airdroperrors.NewAllowanceNotEffectiveError(current, total)
	}
	return nil
}

func (r *run) createDistribution(ctx context.Context, intent models.AirdropIntent, perClaim *big.Int) error {
	r.hooks.OnProgress.Emit(progress.Info, "Creating airdrop...", "Preparing smart contract transaction")

	data, err := contracts.PackCreateDistribution(contracts.CreateDistributionArgs{
		Token:          intent.Token(),
		IsERC20:        intent.IsFungible,
		AmountPerClaim: perClaim,
		WalletCount:    new(big.Int).SetUint64(intent.RecipientCount),
		StartTime:      big.NewInt(intent.StartTime),
		EndTime:        big.NewInt(intent.EndTime),
		MerkleRoot:     intent.MerkleRoot,
		Title:          intent.Title,
		IpfsCID:        intent.WhitelistContentID,
	})
	if err != nil {
		return airdroperrors.NewInvalidInputError("cannot encode distribution: %v", err)
	}

	receipt, err := r.submit(ctx, StepDistribution,
		ContractCall{To: r.o.reader.Distributor(), Data: data, Method: "createDistribution"},
		DistributionSigning, DistributionConfirming, Completed)
	if err != nil {
		return err
	}
	r.result.Receipt = receipt

	r.resolveLink(ctx)
	return nil
}

// submit signs call, waits for its receipt and walks the three states of one write.
func (r *run) submit(ctx context.Context, step Step, call ContractCall, signing, confirming, done State) (*types.Receipt, error) {
	r.transition(signing)
	if r.hooks.OnSignatureRequested != nil {
		r.hooks.OnSignatureRequested(step)
	}

	if err := r.o.signer.SimulateContract(ctx, call); err != nil {
		return nil, airdroperrors.ClassifySignerError(err)
	}
	hash, err := r.sign(ctx, call)
	if err != nil {
		return nil, err
	}
	r.o.logger.InfoWithChain(int(r.o.cfg.ChainID), "%s transaction sent: %s", call.Method, hash.Hex())

	r.transition(confirming)
	if r.hooks.OnSigned != nil {
		r.hooks.OnSigned(step, hash)
	}

	receipt, err := r.o.waiter.AwaitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, airdroperrors.NewTransactionRevertedError(hash, nil)
	}

	r.transition(done)
	if r.hooks.OnSuccess != nil {
		r.hooks.OnSuccess(step, receipt)
	}
	return receipt, nil
}

// sign waits for the signer to send call, at most SignatureTimeout.
func (r *run) sign(ctx context.Context, call ContractCall) (common.Hash, error) {
	timeout := r.o.cfg.SignatureTimeout
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type signed struct {
		hash common.Hash
		err  error
	}
	done := make(chan signed, 1)
	go func() {
		hash, err := r.o.signer.WriteContract(sctx, call)
		done <- signed{hash, err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.hash, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return common.Hash{}, airdroperrors.NewSignatureTimeoutError(call.Method, timeout)
		}
		return common.Hash{}, airdroperrors.ClassifySignerError(res.err)
	case <-sctx.Done():
		if ctx.Err() != nil {
			return common.Hash{}, ctx.Err()
		}
		return common.Hash{}, airdroperrors.NewSignatureTimeoutError(call.Method, timeout)
	}
}

// resolveLink looks up the new distribution id. Failure only degrades the link.
func (r *run) resolveLink(ctx context.Context) {
	id, err := r.o.reader.LatestDistributionID(ctx)
	if err != nil {
		r.o.logger.WarningWithChain(int(r.o.cfg.ChainID), "Airdrop created but its id could not be resolved: %v", err)
		r.result.Link = r.o.reader.DashboardLink()
		r.hooks.OnProgress.Emit(progress.Success, "Airdrop created", "View it on your dashboard")
		return
	}

	r.result.DistributionID = id
	r.result.IDResolved = true
	r.result.Link = r.o.reader.ClaimLink(id)
	r.hooks.OnProgress.Emit(progress.Success, "Airdrop created", fmt.Sprintf("Distribution #%d is live", id))
}

func (r *run) transition(to State) {
	from := r.state
	if !canTransition(from, to) {
		r.o.logger.ErrorWithChain(int(r.o.cfg.ChainID), "Ignoring transition %s -> %s", from, to)
		return
	}
	r.state = to
	metrics.StateTransitions.WithLabelValues(to.String()).Inc()
	if r.hooks.OnStateChange != nil {
		r.hooks.OnStateChange(from, to)
	}
}

func (r *run) fail(err error) error {
	r.transition(Failed)

	outcome := string(airdroperrors.CodeOf(err))
	if outcome == "" {
		outcome = "failed"
	}
	metrics.Airdrops.WithLabelValues(outcome).Inc()
	r.o.logger.ErrorWithChain(int(r.o.cfg.ChainID), "Airdrop failed (%s): %v", airdroperrors.CategoryOf(err), err)

	if r.hooks.OnError != nil {
		r.hooks.OnError(err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
