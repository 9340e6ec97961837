package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/airdropper/pkg/contracts"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
	"github.com/speedrun-hq/airdropper/pkg/server"
	"github.com/speedrun-hq/airdropper/pkg/testutil"
)

var (
	urls    = []string{"https://mainnet.base.org", "https://base.llamarpc.com"}
	wallets = []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
	}
)

type harness struct {
	network *testutil.FakeNetwork
	pool    *rpcpool.Pool
	handler http.Handler
}

func newHarness(t *testing.T, cfg server.Config, endpoints ...string) *harness {
	t.Helper()
	if len(endpoints) == 0 {
		endpoints = urls
	}

	network := testutil.NewFakeNetwork(8453, endpoints...)
	pool, err := rpcpool.New(rpcpool.Config{Endpoints: endpoints, ChainID: 8453, Backoff: time.Millisecond}, nil, rpcpool.WithDialer(network.Dial))
	require.NoError(t, err)
	service := distribution.NewService(pool, distribution.Config{ChainID: 8453, Distributor: testutil.DistributorAddress}, nil)

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 100
	}
	return &harness{
		network: network,
		pool:    pool,
		handler: server.NewServer(cfg, pool, service, nil).Handler(),
	}
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGenerateRoot(t *testing.T) {
	h := newHarness(t, server.Config{})

	t.Run("returns the root", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/merkle/generate", map[string]any{"wallets": wallets})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{
			"success":     true,
			"merkleRoot":  "0xcbf843e9efe7be41ca4d3a03347d27e7bb96d83ae75b3b36983ad907d2109c65",
			"walletCount": float64(3),
		}, decodeBody(t, rec))
	})

	t.Run("rejects an invalid address", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/merkle/generate", map[string]any{"wallets": []string{"0x1234"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("rejects an empty list", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/merkle/generate", map[string]any{"wallets": []string{}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/merkle/generate", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProof(t *testing.T) {
	h := newHarness(t, server.Config{})

	rec := h.do(t, http.MethodPost, "/api/merkle/proof", map[string]any{"wallets": wallets, "wallet": wallets[2]})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{"0x4beda981c9d34f2dd099131be6049a1d87676d227e63f4a409ee629043314b4f"}, body["proof"])
	assert.NotEmpty(t, body["leaf"])

	rec = h.do(t, http.MethodPost, "/api/merkle/proof", map[string]any{
		"wallets": wallets,
		"wallet":  "0x4444444444444444444444444444444444444444",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMerkleRateLimit(t *testing.T) {
	h := newHarness(t, server.Config{RateLimit: 1})

	first := h.do(t, http.MethodPost, "/api/merkle/generate", map[string]any{"wallets": wallets})
	second := h.do(t, http.MethodPost, "/api/merkle/generate", map[string]any{"wallets": wallets})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// health is not limited
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health", nil).Code)
}

func TestDistributions(t *testing.T) {
	raw := contracts.MerkleDistributorDistribution{
		Token:          testutil.TokenAddress,
		IsERC20:        true,
		WalletCount:    big.NewInt(3),
		AmountPerClaim: big.NewInt(1000),
		StartTime:      big.NewInt(1_700_000_000),
		Owner:          common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Title:          "Season 1",
	}

	t.Run("latest", func(t *testing.T) {
		h := newHarness(t, server.Config{})
		h.network.Contracts[testutil.DistributorAddress] = testutil.NewDistributorStub(t).
			Returns("distributionCount", big.NewInt(8)).
			On("distributions", func(args []interface{}) ([]interface{}, error) {
				if args[0].(*big.Int).Int64() != 7 {
					return testutil.DistributionValues(contracts.MerkleDistributorDistribution{}), nil
				}
				return testutil.DistributionValues(raw), nil
			})

		rec := h.do(t, http.MethodGet, "/api/distributions/latest", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(7), body["id"])
		assert.Equal(t, "Season 1", body["title"])
		assert.Equal(t, false, body["whitelistOnly"])
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, "https://mint.club/airdrops/base/7", body["claimLink"])

		rec = h.do(t, http.MethodGet, "/api/distributions/3", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("none yet", func(t *testing.T) {
		h := newHarness(t, server.Config{})
		h.network.Contracts[testutil.DistributorAddress] = testutil.NewDistributorStub(t).
			Returns("distributionCount", big.NewInt(0))

		rec := h.do(t, http.MethodGet, "/api/distributions/latest", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("endpoints unavailable", func(t *testing.T) {
		h := newHarness(t, server.Config{})
		for _, u := range urls {
			h.network.SetProbeErr(u, errors.New("connection refused"))
		}

		rec := h.do(t, http.MethodGet, "/api/distributions/7", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		h := newHarness(t, server.Config{})

		rec := h.do(t, http.MethodGet, "/api/distributions/abc", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReadyStatusAndReset(t *testing.T) {
	h := newHarness(t, server.Config{}, urls[0])
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/ready", nil).Code)

	h.network.SetProbeErr(urls[0], errors.New("connection refused"))
	for i := 0; i < 3; i++ {
		rec := h.do(t, http.MethodGet, "/api/distributions/latest", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}

	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/ready", nil).Code)

	rec := h.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody(t, rec)
	assert.Equal(t, float64(8453), status["chainId"])
	assert.Equal(t, "BASE", status["chain"])
	assert.Equal(t, testutil.DistributorAddress.Hex(), status["distributor"])
	endpoints := status["endpoints"].([]any)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "Base Official", endpoints[0].(map[string]any)["name"])

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/endpoints/reset?url=https://unknown.example", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/endpoints/reset?url="+urls[0], nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/ready", nil).Code)
}

func TestMetricsAuth(t *testing.T) {
	h := newHarness(t, server.Config{MetricsAPIKey: "secret"})

	get := func(auth string) int {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusUnauthorized, get("Token secret"))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer wrong"))
	assert.Equal(t, http.StatusOK, get("Bearer secret"))
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, server.Config{AllowedOrigins: []string{"https://mint.club"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/merkle/generate", nil)
	req.Header.Set("Origin", "https://mint.club")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://mint.club", rec.Header().Get("Access-Control-Allow-Origin"))
}
