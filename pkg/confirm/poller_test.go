package confirm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/airdropper/pkg/confirm"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
	"github.com/speedrun-hq/airdropper/pkg/testutil"
)

var (
	urls   = []string{"https://mainnet.base.org", "https://base.drpc.org"}
	txHash = common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
)

func newPoller(t *testing.T, network *testutil.FakeNetwork, cfg confirm.Config) *confirm.Poller {
	t.Helper()

	pool, err := rpcpool.New(rpcpool.Config{Endpoints: urls, ChainID: 8453, Backoff: time.Millisecond}, nil, rpcpool.WithDialer(network.Dial))
	require.NoError(t, err)
	return confirm.NewPoller(pool, cfg, 8453, nil)
}

func TestAwaitReceipt_Found(t *testing.T) {
	network := testutil.NewFakeNetwork(8453, urls...)
	var calls atomic.Int32
	network.Receipt = func(_ context.Context, _ string, hash common.Hash) (*types.Receipt, error) {
		if calls.Add(1) < 3 {
			return nil, ethereum.NotFound
		}
		return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
	}
	poller := newPoller(t, network, confirm.Config{Interval: time.Millisecond, Attempts: 5})

	receipt, err := poller.AwaitReceipt(context.Background(), txHash)

	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAwaitReceipt_Timeout(t *testing.T) {
	network := testutil.NewFakeNetwork(8453, urls...)
	const attempts = 4
	interval := 25 * time.Millisecond
	poller := newPoller(t, network, confirm.Config{Interval: interval, Attempts: attempts})

	start := time.Now()
	_, err := poller.AwaitReceipt(context.Background(), txHash)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, airdroperrors.ErrConfirmationTimeout)
	assert.Equal(t, airdroperrors.Timeout, airdroperrors.CategoryOf(err))
	assert.GreaterOrEqual(t, elapsed, attempts*interval)
	assert.Less(t, elapsed, 5*time.Second)
	assert.Len(t, network.Dials(), attempts, "one lookup per attempt")
}

func TestAwaitReceipt_RotatesPastFailingEndpoint(t *testing.T) {
	network := testutil.NewFakeNetwork(8453, urls...)
	network.Receipt = func(_ context.Context, url string, hash common.Hash) (*types.Receipt, error) {
		if url == urls[0] {
			return nil, errors.New("429 Too Many Requests")
		}
		return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
	}
	poller := newPoller(t, network, confirm.Config{Interval: time.Millisecond, Attempts: 2})

	receipt, err := poller.AwaitReceipt(context.Background(), txHash)

	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
	assert.Equal(t, urls, network.Dials())
}

func TestAwaitReceipt_UnavailablePollDoesNotAbort(t *testing.T) {
	network := testutil.NewFakeNetwork(8453, urls...)
	var calls atomic.Int32
	network.Receipt = func(_ context.Context, _ string, hash common.Hash) (*types.Receipt, error) {
		// both endpoints fail during the first poll
		if calls.Add(1) <= 2 {
			return nil, errors.New("connection reset by peer")
		}
		return &types.Receipt{TxHash: hash}, nil
	}
	poller := newPoller(t, network, confirm.Config{Interval: time.Millisecond, Attempts: 3})

	receipt, err := poller.AwaitReceipt(context.Background(), txHash)

	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAwaitReceipt_ContextCancelled(t *testing.T) {
	network := testutil.NewFakeNetwork(8453, urls...)
	poller := newPoller(t, network, confirm.Config{GracePeriod: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.AwaitReceipt(ctx, txHash)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, network.Dials())
}
