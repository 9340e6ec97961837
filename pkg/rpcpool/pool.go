// Package rpcpool gives callers a live read client from an ordered set of public RPC endpoints.
//
// Every call walks the endpoint ring from a shared cursor, probes each candidate with a cheap
// chain id request and hands the first live client to the caller's operation. A call makes at
// most one pass over the ring before failing with AllEndpointsUnavailable.
package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/circuitbreaker"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/metrics"
	"github.com/speedrun-hq/airdropper/pkg/progress"
)

const (
	DefaultProbeTimeout   = 3 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultBackoff        = time.Second

	breakerThreshold = 3
	breakerWindow    = time.Minute
	breakerReset     = 30 * time.Second
)

// Client is the read surface handed to operations. *ethclient.Client satisfies it.
type Client interface {
	bind.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// DialFunc opens a client against one endpoint URL.
type DialFunc func(ctx context.Context, url string) (Client, error)

// Config configures a Pool.
type Config struct {
	Endpoints []string
	// ChainID, when non-zero, is compared against each endpoint's reported chain id.
	ChainID        int64
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	Backoff        time.Duration
}

type endpoint struct {
	url     string
	name    string
	breaker *circuitbreaker.CircuitBreaker
}

// Pool is the RPC fallback client. It is safe for concurrent use; the cursor is the only
// state shared between calls.
type Pool struct {
	endpoints []*endpoint
	cursor    atomic.Uint64
	cfg       Config
	dial      DialFunc
	logger    logger.Logger
}

// Option customizes a Pool.
type Option func(*Pool)

// WithDialer replaces the HTTP JSON-RPC dialer.
func WithDialer(dial DialFunc) Option {
	return func(p *Pool) {
		p.dial = dial
	}
}

// New creates a Pool over cfg.Endpoints in the given order.
func New(cfg Config, log logger.Logger, opts ...Option) (*Pool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("at least one RPC endpoint is required")
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	p := &Pool{
		cfg:    cfg,
		logger: log,
	}
	for _, url := range cfg.Endpoints {
		p.endpoints = append(p.endpoints, &endpoint{
			url:     url,
			name:    chains.EndpointDisplayName(url),
			breaker: circuitbreaker.NewCircuitBreaker(true, breakerThreshold, breakerWindow, breakerReset),
		})
	}
	p.dial = dialHTTP(cfg.RequestTimeout)

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// dialHTTP returns a dialer whose HTTP client bounds every request.
func dialHTTP(timeout time.Duration) DialFunc {
	return func(ctx context.Context, url string) (Client, error) {
		rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
		if err != nil {
			return nil, err
		}
		return ethclient.NewClient(rc), nil
	}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// next advances the cursor by one step and returns the endpoint it pointed at.
func (p *Pool) next() *endpoint {
	i := p.cursor.Add(1) - 1
	return p.endpoints[i%uint64(len(p.endpoints))]
}

// Do runs op against the first endpoint that passes the liveness probe.
//
// Probe failures and transient errors returned by op move on to the next endpoint after
// the configured backoff. Any other error from op is returned unchanged without rotating.
func Do[T any](ctx context.Context, p *Pool, onProgress progress.Func, op func(ctx context.Context, c Client) (T, error)) (T, error) {
	return run(ctx, p, onProgress, op, true)
}

// Acquire returns a connection to the first endpoint that passes the liveness probe.
// The caller owns the client and must close it.
func Acquire(ctx context.Context, p *Pool, onProgress progress.Func) (Client, error) {
	return run(ctx, p, onProgress, func(_ context.Context, c Client) (Client, error) {
		return c, nil
	}, false)
}

func run[T any](ctx context.Context, p *Pool, onProgress progress.Func, op func(ctx context.Context, c Client) (T, error), closeAfter bool) (T, error) {
	var zero T
	var lastErr error
	n := len(p.endpoints)

	for attempt := 1; attempt <= n; attempt++ {
		ep := p.next()
		onProgress.Emit(progress.Info, fmt.Sprintf("Connecting to %s...", ep.name), fmt.Sprintf("Attempt %d of %d", attempt, n))

		client, err := p.connect(ctx, ep)
		if err == nil {
			onProgress.Emit(progress.Success, fmt.Sprintf("Connected to %s", ep.name), "Ready to process your request")

			var result T
			result, err = op(ctx, client)
			if closeAfter || err != nil {
				client.Close()
			}

			if err == nil || !airdroperrors.IsTransient(err) || ctx.Err() != nil {
				p.recordSuccess(ep)
				return result, err
			}
		}

		lastErr = err
		p.recordFailure(ep, err)

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if remaining := n - attempt; remaining > 0 {
			onProgress.Emit(progress.Warning,
				fmt.Sprintf("%s connection failed", ep.name),
				fmt.Sprintf("Trying next RPC in %s... (%d attempts remaining)", humanize(p.cfg.Backoff), remaining))
			if err := sleep(ctx, p.cfg.Backoff); err != nil {
				return zero, err
			}
		}
	}

	metrics.RPCEndpointsExhausted.Inc()
	msg := "unknown error"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	onProgress.Emit(progress.Error, "All RPC endpoints failed", "Last error: "+msg)
	p.logger.ErrorWithChain(int(p.cfg.ChainID), "All %d RPC endpoints failed, last error: %s", n, msg)

	return zero, airdroperrors.NewAllEndpointsUnavailableError(n, lastErr)
}

// connect dials ep and checks it answers a chain id request within the probe timeout.
func (p *Pool) connect(ctx context.Context, ep *endpoint) (Client, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	client, err := p.dial(probeCtx, ep.url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep.name, err)
	}

	chainID, err := client.ChainID(probeCtx)
	metrics.RPCProbeLatency.WithLabelValues(ep.name).Observe(time.Since(start).Seconds())
	if err != nil {
		client.Close()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s connection timeout after %s: %w", ep.name, p.cfg.ProbeTimeout, err)
		}
		return nil, fmt.Errorf("probe %s: %w", ep.name, err)
	}
	if p.cfg.ChainID != 0 && (chainID == nil || chainID.Int64() != p.cfg.ChainID) {
		client.Close()
		return nil, fmt.Errorf("%s reports chain %v, expected %d", ep.name, chainID, p.cfg.ChainID)
	}

	return client, nil
}

func (p *Pool) recordSuccess(ep *endpoint) {
	metrics.RPCAttempts.WithLabelValues(ep.name, "success").Inc()
	metrics.RPCEndpointOpen.WithLabelValues(ep.name).Set(0)
	ep.breaker.RecordSuccess()
}

func (p *Pool) recordFailure(ep *endpoint, err error) {
	metrics.RPCAttempts.WithLabelValues(ep.name, "failure").Inc()
	if ep.breaker.RecordFailure() {
		metrics.RPCEndpointOpen.WithLabelValues(ep.name).Set(1)
	}
	p.logger.DebugWithChain(int(p.cfg.ChainID), "RPC %s (%s) failed: %v", ep.name, ep.url, err)
}

// EndpointStatus describes one endpoint for status reporting.
type EndpointStatus struct {
	URL     string               `json:"url"`
	Name    string               `json:"name"`
	Breaker circuitbreaker.State `json:"breaker"`
}

// Status returns every endpoint in rotation order with its breaker state.
func (p *Pool) Status() []EndpointStatus {
	out := make([]EndpointStatus, len(p.endpoints))
	for i, ep := range p.endpoints {
		out[i] = EndpointStatus{URL: ep.url, Name: ep.name, Breaker: ep.breaker.GetState()}
	}
	return out
}

// Cursor returns the index the next call will start from.
func (p *Pool) Cursor() int {
	return int(p.cursor.Load() % uint64(len(p.endpoints)))
}

// ResetBreaker clears the breaker of the endpoint with url. It reports whether url is configured.
func (p *Pool) ResetBreaker(url string) bool {
	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.breaker.Reset()
			metrics.RPCEndpointOpen.WithLabelValues(ep.name).Set(0)
			return true
		}
	}
	return false
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

// humanize renders whole seconds as "1 second" or "3 seconds" and anything else with Duration.String.
func humanize(d time.Duration) string {
	if d > 0 && d%time.Second == 0 {
		secs := int64(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}
