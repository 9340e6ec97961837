package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/merkle"
	"github.com/speedrun-hq/airdropper/pkg/metrics"
	"github.com/speedrun-hq/airdropper/pkg/models"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

const maxBodyBytes = 8 << 20

type generateRequest struct {
	Wallets []string `json:"wallets" validate:"required,min=1"`
}

type generateResponse struct {
	Success     bool   `json:"success"`
	MerkleRoot  string `json:"merkleRoot"`
	WalletCount int    `json:"walletCount"`
}

type proofRequest struct {
	Wallets []string `json:"wallets" validate:"required,min=1"`
	Wallet  string   `json:"wallet" validate:"required"`
}

type proofResponse struct {
	Success bool          `json:"success"`
	Proof   []common.Hash `json:"proof"`
	Leaf    common.Hash   `json:"leaf"`
}

type distributionResponse struct {
	models.Distribution
	Status        models.DistributionStatus `json:"status"`
	WhitelistOnly bool                      `json:"whitelistOnly"`
	ClaimLink     string                    `json:"claimLink"`
}

type statusResponse struct {
	ChainID     int64                    `json:"chainId"`
	Chain       string                   `json:"chain"`
	Distributor string                   `json:"distributor,omitempty"`
	Cursor      int                      `json:"cursor"`
	Endpoints   []rpcpool.EndpointStatus `json:"endpoints"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady answers 503 when every endpoint breaker is open
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	for _, ep := range s.pool.Status() {
		if !ep.Breaker.Open {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Ready"))
			return
		}
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(fmt.Sprintf("All %d RPC endpoints are failing", s.pool.Size())))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Cursor:    s.pool.Cursor(),
		Endpoints: s.pool.Status(),
	}
	if s.service != nil {
		resp.ChainID = s.service.ChainID()
		resp.Chain = chains.GetChainName(int(resp.ChainID))
		resp.Distributor = s.service.Distributor().Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResetEndpoint clears the breaker of ?url=..., or of every endpoint when url is absent
func (s *Server) handleResetEndpoint(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		for _, ep := range s.pool.Status() {
			s.pool.ResetBreaker(ep.URL)
		}
		_, _ = w.Write([]byte(fmt.Sprintf("Reset %d endpoints", s.pool.Size())))
		return
	}

	if !s.pool.ResetBreaker(url) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(fmt.Sprintf("No endpoint %s", url)))
		return
	}
	s.logger.Info("Breaker for %s reset", url)
	_, _ = w.Write([]byte(fmt.Sprintf("Endpoint %s reset", url)))
}

func (s *Server) handleGenerateRoot(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}

	root, err := merkle.BuildRoot(req.Wallets)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.MerkleRootsGenerated.Inc()
	metrics.WhitelistSize.Observe(float64(len(req.Wallets)))

	writeJSON(w, http.StatusOK, generateResponse{
		Success:     true,
		MerkleRoot:  merkle.RootHex(root),
		WalletCount: len(req.Wallets),
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if !s.decode(w, r, &req) {
		return
	}

	proof, err := merkle.ProofFor(req.Wallets, req.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	wallet, err := merkle.NormalizeAddress(req.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if proof == nil {
		proof = []common.Hash{}
	}
	writeJSON(w, http.StatusOK, proofResponse{
		Success: true,
		Proof:   proof,
		Leaf:    merkle.LeafHash(wallet),
	})
}

func (s *Server) handleLatestDistribution(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		writeError(w, http.StatusServiceUnavailable, "distribution lookups are not configured")
		return
	}

	id, err := s.service.LatestDistributionID(r.Context())
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeDistribution(w, r, id)
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		writeError(w, http.StatusServiceUnavailable, "distribution lookups are not configured")
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid distribution id")
		return
	}
	s.writeDistribution(w, r, id)
}

func (s *Server) writeDistribution(w http.ResponseWriter, r *http.Request, id uint64) {
	d, err := s.service.GetDistribution(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	// unknown ids read back as an empty record
	if d.Owner == (common.Address{}) && d.Token == (common.Address{}) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("distribution %d not found", id))
		return
	}

	writeJSON(w, http.StatusOK, distributionResponse{
		Distribution:  d,
		Status:        d.Status(time.Now()),
		WhitelistOnly: d.IsWhitelistOnly(),
		ClaimLink:     s.service.ClaimLink(id),
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distribution.ErrNoDistributions):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, airdroperrors.ErrAllEndpointsUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("Distribution lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON body into v and validates it, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}
