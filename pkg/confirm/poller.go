// Package confirm waits for submitted transactions to be mined.
package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/metrics"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

const (
	DefaultGracePeriod = 2 * time.Second
	DefaultInterval    = 2 * time.Second
	DefaultAttempts    = 30
)

// Config bounds a Poller.
type Config struct {
	GracePeriod time.Duration
	Interval    time.Duration
	Attempts    int
}

// Poller looks up transaction receipts through the RPC pool until one is found.
type Poller struct {
	pool    *rpcpool.Pool
	cfg     Config
	logger  logger.Logger
	chainID int
}

// NewPoller creates a Poller. A zero interval or attempt count falls back to the defaults.
func NewPoller(pool *rpcpool.Pool, cfg Config, chainID int, log logger.Logger) *Poller {
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Poller{
		pool:    pool,
		cfg:     cfg,
		logger:  log,
		chainID: chainID,
	}
}

// AwaitReceipt waits the grace period, then polls for the receipt of hash once per interval.
// Each poll takes a fresh client from the pool, so an unreachable endpoint only costs that poll.
// It fails with ConfirmationTimeout once every attempt has come back empty.
func (p *Poller) AwaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	start := time.Now()

	if err := sleep(ctx, p.cfg.GracePeriod); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		receipt, err := rpcpool.Do(ctx, p.pool, nil, func(ctx context.Context, c rpcpool.Client) (*types.Receipt, error) {
			return c.TransactionReceipt(ctx, hash)
		})

		switch {
		case err == nil && receipt != nil:
			metrics.ConfirmationPolls.WithLabelValues("found").Inc()
			metrics.ConfirmationWait.Observe(time.Since(start).Seconds())
			p.logger.DebugWithChain(p.chainID, "Receipt for %s found on attempt %d", hash.Hex(), attempt)
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			metrics.ConfirmationPolls.WithLabelValues("pending").Inc()
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.ConfirmationPolls.WithLabelValues("error").Inc()
			p.logger.DebugWithChain(p.chainID, "Attempt %d for %s failed, retrying with different RPC: %v", attempt, hash.Hex(), err)
		}

		if err := sleep(ctx, p.cfg.Interval); err != nil {
			return nil, err
		}
	}

	p.logger.WarningWithChain(p.chainID, "Transaction %s not confirmed after %d attempts", hash.Hex(), p.cfg.Attempts)
	return nil, airdroperrors.NewConfirmationTimeoutError(hash, p.cfg.Attempts)
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
