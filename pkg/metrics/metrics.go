package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	RPCAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airdropper_rpc_attempts_total",
		Help: "RPC endpoint attempts by endpoint and result",
	}, []string{"endpoint", "result"})

	RPCProbeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airdropper_rpc_probe_seconds",
		Help:    "Latency of the chain id liveness probe",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	}, []string{"endpoint"})

	RPCEndpointsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airdropper_rpc_endpoints_exhausted_total",
		Help: "Calls that failed on every configured endpoint",
	})

	RPCEndpointOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airdropper_rpc_endpoint_open",
		Help: "1 when the endpoint breaker is open",
	}, []string{"endpoint"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airdropper_state_transitions_total",
		Help: "Orchestrator state transitions by target state",
	}, []string{"state"})

	Airdrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airdropper_airdrops_total",
		Help: "Airdrop submissions by outcome",
	}, []string{"outcome"})

	ApprovalsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airdropper_approvals_skipped_total",
		Help: "Submissions whose existing allowance already covered the total",
	})

	ConfirmationPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airdropper_confirmation_polls_total",
		Help: "Receipt lookups by result",
	}, []string{"result"})

	ConfirmationWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdropper_confirmation_wait_seconds",
		Help:    "Time from submission to observed receipt",
		Buckets: prometheus.LinearBuckets(2, 4, 16),
	})

	MerkleRootsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airdropper_merkle_roots_generated_total",
		Help: "Merkle roots built",
	})

	WhitelistSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdropper_whitelist_size",
		Help:    "Number of addresses per generated whitelist",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	TokenCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airdropper_token_cache_lookups_total",
		Help: "Token metadata cache lookups by result",
	}, []string{"result"})
)
