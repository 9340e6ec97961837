package airdrop_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/airdropper/pkg/airdrop"
	"github.com/speedrun-hq/airdropper/pkg/airdrop/mocks"
	"github.com/speedrun-hq/airdropper/pkg/confirm"
	"github.com/speedrun-hq/airdropper/pkg/contracts"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/merkle"
	"github.com/speedrun-hq/airdropper/pkg/models"
	"github.com/speedrun-hq/airdropper/pkg/progress"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
	"github.com/speedrun-hq/airdropper/pkg/testutil"
)

const chainID = 8453

var (
	urls       = []string{"https://mainnet.base.org", "https://base.llamarpc.com"}
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	approveTx  = common.HexToHash("0xaa")
	createTx   = common.HexToHash("0xcc")
	recipients = []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
	}
	oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// chain is the fake network state shared by a test.
type chain struct {
	mu        sync.Mutex
	network   *testutil.FakeNetwork
	allowance *big.Int
	count     int64
}

func newChain(t *testing.T, allowance *big.Int) *chain {
	t.Helper()

	c := &chain{
		network:   testutil.NewFakeNetwork(chainID, urls...),
		allowance: allowance,
		count:     41,
	}
	c.network.Contracts[testutil.TokenAddress] = testutil.NewERC20Stub(t, "HUNT", "HUNT", 18).
		On("allowance", func(args []interface{}) ([]interface{}, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return []interface{}{new(big.Int).Set(c.allowance)}, nil
		})
	c.network.Contracts[testutil.DistributorAddress] = testutil.NewDistributorStub(t).
		On("distributionCount", func([]interface{}) ([]interface{}, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return []interface{}{big.NewInt(c.count)}, nil
		})
	return c
}

func (c *chain) setAllowance(v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowance = v
}

func (c *chain) distributionCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

type fakeWaiter struct {
	mu       sync.Mutex
	status   map[common.Hash]uint64
	err      error
	awaiting []common.Hash
}

func (w *fakeWaiter) AwaitReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.awaiting = append(w.awaiting, hash)
	if w.err != nil {
		return nil, w.err
	}
	status := types.ReceiptStatusSuccessful
	if s, ok := w.status[hash]; ok {
		status = s
	}
	return &types.Receipt{TxHash: hash, Status: status}, nil
}

// recorder collects every hook invocation of a run.
type recorder struct {
	transitions []airdrop.State
	requested   []airdrop.Step
	signed      []common.Hash
	succeeded   []airdrop.Step
	errs        []error
	events      []progress.Event
}

func (r *recorder) hooks() airdrop.Hooks {
	return airdrop.Hooks{
		OnStateChange:        func(_, to airdrop.State) { r.transitions = append(r.transitions, to) },
		OnSignatureRequested: func(step airdrop.Step) { r.requested = append(r.requested, step) },
		OnSigned:             func(_ airdrop.Step, hash common.Hash) { r.signed = append(r.signed, hash) },
		OnSuccess:            func(step airdrop.Step, _ *types.Receipt) { r.succeeded = append(r.succeeded, step) },
		OnError:              func(err error) { r.errs = append(r.errs, err) },
		OnProgress:           func(e progress.Event) { r.events = append(r.events, e) },
	}
}

// flowEvents drops the endpoint rotation events and keeps the orchestrator's own.
func (r *recorder) flowEvents() []progress.Event {
	var out []progress.Event
	for _, e := range r.events {
		if strings.HasPrefix(e.Message, "Connect") {
			continue
		}
		out = append(out, e)
	}
	return out
}

func newIntent(t *testing.T) models.AirdropIntent {
	t.Helper()

	root, err := merkle.BuildRoot(recipients)
	require.NoError(t, err)
	return models.AirdropIntent{
		Title:              "Season 1",
		TokenAddress:       testutil.TokenAddress.Hex(),
		IsFungible:         true,
		TotalAmount:        "300",
		RecipientCount:     uint64(len(recipients)),
		StartTime:          1_700_000_000,
		EndTime:            1_700_086_400,
		MerkleRoot:         root,
		WhitelistContentID: "bafkreigh2akiscaildc",
	}
}

func newOrchestrator(t *testing.T, c *chain, signer airdrop.Signer, waiter airdrop.ReceiptWaiter, cfg airdrop.Config) *airdrop.Orchestrator {
	t.Helper()

	pool, err := rpcpool.New(rpcpool.Config{Endpoints: urls, ChainID: chainID, Backoff: time.Millisecond}, nil,
		rpcpool.WithDialer(c.network.Dial))
	require.NoError(t, err)
	reader := distribution.NewService(pool, distribution.Config{
		ChainID:     chainID,
		Distributor: testutil.DistributorAddress,
	}, nil)
	if waiter == nil {
		waiter = &fakeWaiter{}
	}
	return airdrop.New(signer, reader, waiter, cfg, nil)
}

func isMethod(name string) interface{} {
	return mock.MatchedBy(func(call airdrop.ContractCall) bool { return call.Method == name })
}

func onBase(signer *mocks.Signer) {
	signer.On("ChainID", mock.Anything).Return(big.NewInt(chainID), nil)
	signer.On("Address").Return(owner)
}

func TestRun_ExistingAllowanceSkipsApproval(t *testing.T) {
	c := newChain(t, new(big.Int).Mul(big.NewInt(1000), oneToken))
	intent := newIntent(t)

	network := c.network
	network.Receipt = func(_ context.Context, _ string, hash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
	}
	pool, err := rpcpool.New(rpcpool.Config{Endpoints: urls, ChainID: chainID, Backoff: time.Millisecond}, nil,
		rpcpool.WithDialer(network.Dial))
	require.NoError(t, err)
	poller := confirm.NewPoller(pool, confirm.Config{Interval: time.Millisecond, Attempts: 3}, chainID, nil)

	signer := mocks.NewSigner(t)
	onBase(signer)
	var sent airdrop.ContractCall
	signer.On("SimulateContract", mock.Anything, isMethod("createDistribution")).Return(nil).Once()
	signer.On("WriteContract", mock.Anything, isMethod("createDistribution")).
		Return(func(_ context.Context, call airdrop.ContractCall) (common.Hash, error) {
			sent = call
			c.distributionCreated()
			return createTx, nil
		}).Once()

	rec := &recorder{}
	result, err := newOrchestrator(t, c, signer, poller, airdrop.Config{}).Run(context.Background(), intent, rec.hooks())

	require.NoError(t, err)
	assert.Equal(t, []airdrop.State{
		airdrop.CheckingAllowance,
		airdrop.DistributionSigning,
		airdrop.DistributionConfirming,
		airdrop.Completed,
	}, rec.transitions)
	assert.Equal(t, []airdrop.Step{airdrop.StepDistribution}, rec.requested)
	assert.Equal(t, []common.Hash{createTx}, rec.signed)
	assert.Equal(t, []airdrop.Step{airdrop.StepApproval, airdrop.StepDistribution}, rec.succeeded)
	assert.Empty(t, rec.errs)

	assert.True(t, result.ApprovalSkipped)
	assert.Nil(t, result.ApprovalReceipt)
	assert.Equal(t, createTx, result.Receipt.TxHash)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(100), oneToken), result.AmountPerClaim)
	assert.Zero(t, result.Remainder.Sign())
	assert.True(t, result.IDResolved)
	assert.Equal(t, uint64(41), result.DistributionID)
	assert.Equal(t, "https://mint.club/airdrops/base/41", result.Link)

	want := []progress.Event{
		{Kind: progress.Info, Message: "Checking token allowance...", Details: "Verifying spending permissions"},
		{Kind: progress.Success, Message: "Token allowance verified", Details: "Sufficient spending permissions already exist"},
		{Kind: progress.Info, Message: "Creating airdrop...", Details: "Preparing smart contract transaction"},
		{Kind: progress.Success, Message: "Airdrop created", Details: "Distribution #41 is live"},
	}
	if diff := cmp.Diff(want, rec.flowEvents()); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}

	parsed, err := contracts.MerkleDistributorMetaData.GetAbi()
	require.NoError(t, err)
	assert.Equal(t, testutil.DistributorAddress, sent.To)
	args, err := parsed.Methods["createDistribution"].Inputs.Unpack(sent.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, testutil.TokenAddress, args[0])
	assert.Equal(t, true, args[1])
	assert.Equal(t, new(big.Int).Mul(big.NewInt(100), oneToken), args[2])
	assert.Equal(t, big.NewInt(3), args[3])
	assert.Equal(t, [32]byte(common.HexToHash("0xcbf843e9efe7be41ca4d3a03347d27e7bb96d83ae75b3b36983ad907d2109c65")), args[6])
	assert.Equal(t, "Season 1", args[7])
	assert.Equal(t, "bafkreigh2akiscaildc", args[8])
}

func TestRun_ApprovesWhenAllowanceIsShort(t *testing.T) {
	c := newChain(t, big.NewInt(0))
	total := new(big.Int).Mul(big.NewInt(300), oneToken)

	signer := mocks.NewSigner(t)
	onBase(signer)
	var approval airdrop.ContractCall
	signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil).Twice()
	signer.On("WriteContract", mock.Anything, isMethod("approve")).
		Return(func(_ context.Context, call airdrop.ContractCall) (common.Hash, error) {
			approval = call
			c.setAllowance(total)
			return approveTx, nil
		}).Once()
	signer.On("WriteContract", mock.Anything, isMethod("createDistribution")).Return(createTx, nil).Once()

	waiter := &fakeWaiter{}
	rec := &recorder{}
	result, err := newOrchestrator(t, c, signer, waiter, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

	require.NoError(t, err)
	assert.Equal(t, []airdrop.State{
		airdrop.CheckingAllowance,
		airdrop.ApprovalSigning,
		airdrop.ApprovalConfirming,
		airdrop.ApprovalComplete,
		airdrop.DistributionSigning,
		airdrop.DistributionConfirming,
		airdrop.Completed,
	}, rec.transitions)
	assert.Equal(t, []airdrop.Step{airdrop.StepApproval, airdrop.StepDistribution}, rec.requested)
	assert.Equal(t, []common.Hash{approveTx, createTx}, rec.signed)
	assert.Equal(t, []common.Hash{approveTx, createTx}, waiter.awaiting)
	assert.False(t, result.ApprovalSkipped)
	assert.Equal(t, approveTx, result.ApprovalReceipt.TxHash)

	assert.Equal(t, testutil.TokenAddress, approval.To)
	data, err := contracts.PackApprove(testutil.DistributorAddress, total)
	require.NoError(t, err)
	assert.Equal(t, data, approval.Data, "approval is sized at exactly the total")

	assert.Contains(t, rec.flowEvents(), progress.Event{
		Kind: progress.Warning, Message: "Insufficient token allowance", Details: "Requesting approval for token spending",
	})
}

func TestRun_ApprovalNotEffective(t *testing.T) {
	c := newChain(t, big.NewInt(5))

	signer := mocks.NewSigner(t)
	onBase(signer)
	signer.On("SimulateContract", mock.Anything, isMethod("approve")).Return(nil).Once()
	signer.On("WriteContract", mock.Anything, isMethod("approve")).Return(approveTx, nil).Once()

	rec := &recorder{}
	_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

	require.Error(t, err)
	assert.ErrorIs(t, err, airdroperrors.ErrAllowanceNotEffective)
	assert.Contains(t, err.Error(), "Insufficient allowance after approval. Current: 5, Required: 300000000000000000000")
	assert.Equal(t, airdrop.Failed, rec.transitions[len(rec.transitions)-1])
	assert.NotContains(t, rec.transitions, airdrop.DistributionSigning)
	require.Len(t, rec.errs, 1)
	assert.Same(t, err, rec.errs[0])
}

func TestRun_NetworkCheck(t *testing.T) {
	t.Run("switches chain", func(t *testing.T) {
		c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))

		signer := mocks.NewSigner(t)
		signer.On("ChainID", mock.Anything).Return(big.NewInt(1), nil).Once()
		signer.On("SwitchChain", mock.Anything, big.NewInt(chainID)).Return(nil).Once()
		onBase(signer)
		signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil)
		signer.On("WriteContract", mock.Anything, mock.Anything).Return(createTx, nil)

		_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), airdrop.Hooks{})

		require.NoError(t, err)
	})

	t.Run("switch refused", func(t *testing.T) {
		c := newChain(t, big.NewInt(0))

		signer := mocks.NewSigner(t)
		signer.On("ChainID", mock.Anything).Return(big.NewInt(1), nil).Once()
		signer.On("SwitchChain", mock.Anything, big.NewInt(chainID)).Return(errors.New("User rejected the request.")).Once()

		rec := &recorder{}
		_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

		assert.ErrorIs(t, err, airdroperrors.ErrWrongNetwork)
		assert.Equal(t, []airdrop.State{airdrop.Failed}, rec.transitions)
		assert.Empty(t, c.network.Dials(), "nothing is read before the network is right")
	})
}

func TestRun_SignerFailures(t *testing.T) {
	tests := []struct {
		name      string
		write     interface{}
		cfg       airdrop.Config
		wantErr   error
		wantCateg airdroperrors.Category
	}{
		{
			name:      "user rejects",
			write:     errors.New("MetaMask Tx Signature: User denied transaction signature."),
			wantErr:   airdroperrors.ErrUserRejected,
			wantCateg: airdroperrors.UserRejected,
		},
		{
			name:      "insufficient funds",
			write:     errors.New("insufficient funds for gas * price + value"),
			wantErr:   airdroperrors.ErrInsufficientFunds,
			wantCateg: airdroperrors.Fatal,
		},
		{
			name: "signature never arrives",
			write: func(ctx context.Context, _ airdrop.ContractCall) (common.Hash, error) {
				<-ctx.Done()
				return common.Hash{}, ctx.Err()
			},
			cfg:       airdrop.Config{SignatureTimeout: 20 * time.Millisecond},
			wantErr:   airdroperrors.ErrSignatureTimeout,
			wantCateg: airdroperrors.Timeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))

			signer := mocks.NewSigner(t)
			onBase(signer)
			signer.On("SimulateContract", mock.Anything, isMethod("createDistribution")).Return(nil).Once()
			if err, ok := tt.write.(error); ok {
				signer.On("WriteContract", mock.Anything, isMethod("createDistribution")).Return(common.Hash{}, err).Once()
			} else {
				signer.On("WriteContract", mock.Anything, isMethod("createDistribution")).Return(tt.write).Once()
			}

			waiter := &fakeWaiter{}
			rec := &recorder{}
			_, err := newOrchestrator(t, c, signer, waiter, tt.cfg).Run(context.Background(), newIntent(t), rec.hooks())

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCateg, airdroperrors.CategoryOf(err))
			assert.Equal(t, []airdrop.State{airdrop.CheckingAllowance, airdrop.DistributionSigning, airdrop.Failed}, rec.transitions)
			assert.Empty(t, rec.signed)
			assert.Empty(t, waiter.awaiting)
		})
	}
}

func TestRun_SimulationRevert(t *testing.T) {
	c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))

	signer := mocks.NewSigner(t)
	onBase(signer)
	signer.On("SimulateContract", mock.Anything, isMethod("createDistribution")).
		Return(errors.New("execution reverted: InvalidParams")).Once()

	_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), airdrop.Hooks{})

	assert.ErrorIs(t, err, airdroperrors.ErrTransactionReverted)
	signer.AssertNotCalled(t, "WriteContract", mock.Anything, mock.Anything)
}

func TestRun_ConfirmationOutcomes(t *testing.T) {
	t.Run("reverted receipt", func(t *testing.T) {
		c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))
		signer := mocks.NewSigner(t)
		onBase(signer)
		signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil)
		signer.On("WriteContract", mock.Anything, mock.Anything).Return(createTx, nil)
		waiter := &fakeWaiter{status: map[common.Hash]uint64{createTx: types.ReceiptStatusFailed}}

		rec := &recorder{}
		_, err := newOrchestrator(t, c, signer, waiter, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

		assert.ErrorIs(t, err, airdroperrors.ErrTransactionReverted)
		assert.Contains(t, err.Error(), createTx.Hex())
		assert.Equal(t, []common.Hash{createTx}, rec.signed)
		assert.Equal(t, airdrop.Failed, rec.transitions[len(rec.transitions)-1])
	})

	t.Run("receipt never seen", func(t *testing.T) {
		c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))
		signer := mocks.NewSigner(t)
		onBase(signer)
		signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil)
		signer.On("WriteContract", mock.Anything, mock.Anything).Return(createTx, nil)
		waiter := &fakeWaiter{err: airdroperrors.NewConfirmationTimeoutError(createTx, 30)}

		_, err := newOrchestrator(t, c, signer, waiter, airdrop.Config{}).Run(context.Background(), newIntent(t), airdrop.Hooks{})

		assert.ErrorIs(t, err, airdroperrors.ErrConfirmationTimeout)
		assert.Equal(t, airdroperrors.Timeout, airdroperrors.CategoryOf(err))
	})
}

func TestRun_UnresolvedIDStillSucceeds(t *testing.T) {
	c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))
	c.network.Contracts[testutil.DistributorAddress] = testutil.NewDistributorStub(t)

	signer := mocks.NewSigner(t)
	onBase(signer)
	signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil)
	signer.On("WriteContract", mock.Anything, mock.Anything).Return(createTx, nil)

	rec := &recorder{}
	result, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

	require.NoError(t, err)
	assert.False(t, result.IDResolved)
	assert.Equal(t, "https://mint.club/dashboard/airdrops", result.Link)
	assert.Equal(t, airdrop.Completed, rec.transitions[len(rec.transitions)-1])
	assert.Empty(t, rec.errs)

	events := rec.flowEvents()
	assert.Equal(t, progress.Event{Kind: progress.Success, Message: "Airdrop created", Details: "View it on your dashboard"}, events[len(events)-1])
}

func TestRun_InvalidToken(t *testing.T) {
	c := newChain(t, big.NewInt(0))
	delete(c.network.Contracts, testutil.TokenAddress)

	signer := mocks.NewSigner(t)
	signer.On("ChainID", mock.Anything).Return(big.NewInt(chainID), nil)

	rec := &recorder{}
	_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), newIntent(t), rec.hooks())

	assert.ErrorIs(t, err, airdroperrors.ErrInvalidToken)
	assert.Equal(t, []airdrop.State{airdrop.Failed}, rec.transitions)
	assert.Empty(t, rec.requested)
}

func TestRun_InvalidIntent(t *testing.T) {
	c := newChain(t, big.NewInt(0))
	intent := newIntent(t)
	intent.EndTime = intent.StartTime

	signer := mocks.NewSigner(t)
	rec := &recorder{}
	_, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), intent, rec.hooks())

	assert.ErrorIs(t, err, airdroperrors.ErrInvalidInput)
	assert.Equal(t, []airdrop.State{airdrop.Failed}, rec.transitions)
	require.Len(t, rec.errs, 1)
}

func TestRun_RemainderIsNotRedistributed(t *testing.T) {
	c := newChain(t, new(big.Int).Mul(big.NewInt(300), oneToken))
	intent := newIntent(t)
	intent.TotalAmount = "0.000000000000000010"

	signer := mocks.NewSigner(t)
	onBase(signer)
	signer.On("SimulateContract", mock.Anything, mock.Anything).Return(nil)
	signer.On("WriteContract", mock.Anything, mock.Anything).Return(createTx, nil)

	result, err := newOrchestrator(t, c, signer, nil, airdrop.Config{}).Run(context.Background(), intent, airdrop.Hooks{})

	require.NoError(t, err)
	assert.Equal(t, int64(10), result.TotalAmount.Int64())
	assert.Equal(t, int64(3), result.AmountPerClaim.Int64())
	assert.Equal(t, int64(1), result.Remainder.Int64())
}
