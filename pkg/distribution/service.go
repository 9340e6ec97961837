// Package distribution reads MerkleDistributor and ERC20 state through the RPC pool.
//
// Every read makes its own pass over the endpoint ring. When the whole ring is down the
// error matches airdroperrors.ErrAllEndpointsUnavailable so callers can degrade instead of failing.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/contracts"
	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/models"
	"github.com/speedrun-hq/airdropper/pkg/progress"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

const (
	DefaultSiteURL       = "https://mint.club"
	DefaultTokenCacheTTL = 5 * time.Minute
)

// ErrNoDistributions is returned by LatestDistributionID when the contract has none yet.
var ErrNoDistributions = errors.New("no distributions created yet")

// Config configures a Service.
type Config struct {
	ChainID       int64
	Distributor   common.Address
	SiteURL       string
	TokenCacheTTL time.Duration
}

// Service is the read-only view of distributions and tokens.
type Service struct {
	pool       *rpcpool.Pool
	cfg        Config
	cache      *TokenCache
	logger     logger.Logger
	onProgress progress.Func
}

// NewService creates a Service over pool.
func NewService(pool *rpcpool.Pool, cfg Config, log logger.Logger) *Service {
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if cfg.TokenCacheTTL <= 0 {
		cfg.TokenCacheTTL = DefaultTokenCacheTTL
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Service{
		pool:   pool,
		cfg:    cfg,
		cache:  NewTokenCache(cfg.TokenCacheTTL),
		logger: log,
	}
}

// WithProgress returns a copy of s that reports endpoint rotation to f.
// The copy shares the pool and the token cache.
func (s *Service) WithProgress(f progress.Func) *Service {
	c := *s
	c.onProgress = f
	return &c
}

// Distributor returns the MerkleDistributor address.
func (s *Service) Distributor() common.Address {
	return s.cfg.Distributor
}

// ChainID returns the chain the service reads from.
func (s *Service) ChainID() int64 {
	return s.cfg.ChainID
}

func (s *Service) distributorCall(ctx context.Context, fn func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) error) error {
	_, err := rpcpool.Do(ctx, s.pool, s.onProgress, func(ctx context.Context, c rpcpool.Client) (struct{}, error) {
		d, err := contracts.NewMerkleDistributorCaller(s.cfg.Distributor, c)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, fn(d, &bind.CallOpts{Context: ctx})
	})
	return err
}

func (s *Service) tokenCall(ctx context.Context, token common.Address, fn func(t *contracts.ERC20Caller, opts *bind.CallOpts) error) error {
	_, err := rpcpool.Do(ctx, s.pool, s.onProgress, func(ctx context.Context, c rpcpool.Client) (struct{}, error) {
		t, err := contracts.NewERC20Caller(token, c)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, fn(t, &bind.CallOpts{Context: ctx})
	})
	return err
}

// LatestDistributionID returns distributionCount - 1.
func (s *Service) LatestDistributionID(ctx context.Context) (uint64, error) {
	var count *big.Int
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		count, err = d.DistributionCount(opts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read distribution count: %w", err)
	}
	if count.Sign() == 0 {
		return 0, ErrNoDistributions
	}
	return new(big.Int).Sub(count, big.NewInt(1)).Uint64(), nil
}

// GetDistribution reads the distribution record for id.
func (s *Service) GetDistribution(ctx context.Context, id uint64) (models.Distribution, error) {
	var raw contracts.MerkleDistributorDistribution
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		raw, err = d.Distributions(opts, new(big.Int).SetUint64(id))
		return err
	})
	if err != nil {
		return models.Distribution{}, fmt.Errorf("failed to read distribution %d: %w", id, err)
	}
	return toModel(id, raw), nil
}

func toModel(id uint64, raw contracts.MerkleDistributorDistribution) models.Distribution {
	return models.Distribution{
		ID:                 id,
		Token:              raw.Token,
		IsFungible:         raw.IsERC20,
		RecipientCount:     uint64OrZero(raw.WalletCount),
		ClaimedCount:       uint64OrZero(raw.ClaimedCount),
		AmountPerClaim:     raw.AmountPerClaim,
		StartTime:          uint64OrZero(raw.StartTime),
		EndTime:            uint64OrZero(raw.EndTime),
		Owner:              raw.Owner,
		RefundedAt:         uint64OrZero(raw.RefundedAt),
		MerkleRoot:         common.Hash(raw.MerkleRoot),
		Title:              raw.Title,
		WhitelistContentID: raw.IpfsCID,
	}
}

func uint64OrZero(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}

// IsClaimed reports whether wallet has claimed from distribution id.
func (s *Service) IsClaimed(ctx context.Context, id uint64, wallet common.Address) (bool, error) {
	var claimed bool
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		claimed, err = d.IsClaimed(opts, new(big.Int).SetUint64(id), wallet)
		return err
	})
	return claimed, err
}

// IsWhitelistOnly reports whether distribution id requires a Merkle proof to claim.
func (s *Service) IsWhitelistOnly(ctx context.Context, id uint64) (bool, error) {
	var only bool
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		only, err = d.IsWhitelistOnly(opts, new(big.Int).SetUint64(id))
		return err
	})
	return only, err
}

// VerifyWhitelisted asks the contract whether proof admits wallet into distribution id.
func (s *Service) VerifyWhitelisted(ctx context.Context, id uint64, wallet common.Address, proof []common.Hash) (bool, error) {
	raw := make([][32]byte, len(proof))
	for i, p := range proof {
		raw[i] = p
	}

	var ok bool
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		ok, err = d.IsWhitelisted(opts, new(big.Int).SetUint64(id), wallet, raw)
		return err
	})
	return ok, err
}

// AmountLeft returns the unclaimed amount of distribution id in token units.
func (s *Service) AmountLeft(ctx context.Context, id uint64) (*big.Int, error) {
	var left *big.Int
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		left, err = d.GetAmountLeft(opts, new(big.Int).SetUint64(id))
		return err
	})
	return left, err
}

// AmountClaimed returns the claimed amount of distribution id in token units.
func (s *Service) AmountClaimed(ctx context.Context, id uint64) (*big.Int, error) {
	var claimed *big.Int
	err := s.distributorCall(ctx, func(d *contracts.MerkleDistributorCaller, opts *bind.CallOpts) (err error) {
		claimed, err = d.GetAmountClaimed(opts, new(big.Int).SetUint64(id))
		return err
	})
	return claimed, err
}

// TokenInfo reads name, symbol and decimals of token concurrently on one endpoint.
// Non-fungible tokens have no decimals and report 0 without reading them.
//
// Any failed read makes the token invalid, except exhaustion of the endpoint ring which is
// returned as is.
func (s *Service) TokenInfo(ctx context.Context, token common.Address, fungible bool) (models.TokenInfo, error) {
	if fungible {
		if info, ok := s.cache.Get(s.cfg.ChainID, token); ok {
			return info, nil
		}
	}

	info, err := rpcpool.Do(ctx, s.pool, s.onProgress, func(ctx context.Context, c rpcpool.Client) (models.TokenInfo, error) {
		t, err := contracts.NewERC20Caller(token, c)
		if err != nil {
			return models.TokenInfo{}, err
		}

		info := models.TokenInfo{Address: token}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			info.Name, err = t.Name(&bind.CallOpts{Context: gctx})
			return err
		})
		g.Go(func() (err error) {
			info.Symbol, err = t.Symbol(&bind.CallOpts{Context: gctx})
			return err
		})
		if fungible {
			g.Go(func() (err error) {
				info.Decimals, err = t.Decimals(&bind.CallOpts{Context: gctx})
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return models.TokenInfo{}, err
		}
		return info, nil
	})
	if err != nil {
		if errors.Is(err, airdroperrors.ErrAllEndpointsUnavailable) || ctx.Err() != nil {
			return models.TokenInfo{}, err
		}
		s.logger.DebugWithChain(int(s.cfg.ChainID), "Token validation failed for %s: %v", token.Hex(), err)
		return models.TokenInfo{}, airdroperrors.NewInvalidTokenError(token, err)
	}

	if fungible {
		s.cache.Set(s.cfg.ChainID, info)
	}
	return info, nil
}

// Allowance returns how much of token the distributor may spend on behalf of owner.
func (s *Service) Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := s.tokenCall(ctx, token, func(t *contracts.ERC20Caller, opts *bind.CallOpts) (err error) {
		allowance, err = t.Allowance(opts, owner, s.cfg.Distributor)
		return err
	})
	return allowance, err
}

// BalanceOf returns the token balance of owner.
func (s *Service) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	err := s.tokenCall(ctx, token, func(t *contracts.ERC20Caller, opts *bind.CallOpts) (err error) {
		balance, err = t.BalanceOf(opts, owner)
		return err
	})
	return balance, err
}

// ClaimLink returns the public claim page of distribution id.
func (s *Service) ClaimLink(id uint64) string {
	slug := chains.GetChainSlug(int(s.cfg.ChainID))
	if slug == "" {
		slug = fmt.Sprintf("%d", s.cfg.ChainID)
	}
	return fmt.Sprintf("%s/airdrops/%s/%d", s.cfg.SiteURL, slug, id)
}

// DashboardLink is shown instead of a claim link when the new distribution id is unknown.
func (s *Service) DashboardLink() string {
	return s.cfg.SiteURL + "/dashboard/airdrops"
}

// Cache exposes the token metadata cache.
func (s *Service) Cache() *TokenCache {
	return s.cache
}
