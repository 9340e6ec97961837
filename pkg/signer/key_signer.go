// Package signer provides a private-key implementation of the airdrop signer for headless use.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/speedrun-hq/airdropper/pkg/airdrop"
	"github.com/speedrun-hq/airdropper/pkg/logger"
)

// DefaultGasMultiplier pads the estimated gas limit by 10%.
const DefaultGasMultiplier = 1.1

// Backend is the chain connection a KeySigner sends through. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeySigner signs with a local private key and sends through one backend.
type KeySigner struct {
	backend       Backend
	key           *ecdsa.PrivateKey
	address       common.Address
	chainID       *big.Int
	gasMultiplier float64
	logger        logger.Logger
}

// NewKeySigner parses privateKeyHex (with or without 0x) and binds the signer to the backend's chain.
func NewKeySigner(ctx context.Context, backend Backend, privateKeyHex string, gasMultiplier float64, log logger.Logger) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if gasMultiplier < 1 {
		gasMultiplier = DefaultGasMultiplier
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	return &KeySigner{
		backend:       backend,
		key:           key,
		address:       crypto.PubkeyToAddress(key.PublicKey),
		chainID:       chainID,
		gasMultiplier: gasMultiplier,
		logger:        log,
	}, nil
}

var _ airdrop.Signer = (*KeySigner)(nil)

// Address returns the account derived from the key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain the backend is connected to.
func (s *KeySigner) ChainID(ctx context.Context) (*big.Int, error) {
	return s.backend.ChainID(ctx)
}

// SwitchChain only succeeds when the backend is already on chainID. A key signer cannot move.
func (s *KeySigner) SwitchChain(ctx context.Context, chainID *big.Int) error {
	current, err := s.backend.ChainID(ctx)
	if err != nil {
		return err
	}
	if current.Cmp(chainID) != 0 {
		return fmt.Errorf("backend is connected to chain %v, cannot switch to %v", current, chainID)
	}
	return nil
}

// SimulateContract estimates gas for call, which fails when the call would revert.
func (s *KeySigner) SimulateContract(ctx context.Context, call airdrop.ContractCall) error {
	_, err := s.estimate(ctx, call)
	return err
}

// WriteContract signs and sends call with a padded gas limit and returns its hash.
func (s *KeySigner) WriteContract(ctx context.Context, call airdrop.ContractCall) (common.Hash, error) {
	gas, err := s.estimate(ctx, call)
	if err != nil {
		return common.Hash{}, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transactor: %v", err)
	}
	opts.Context = ctx
	opts.GasLimit = uint64(float64(gas) * s.gasMultiplier)

	contract := bind.NewBoundContract(call.To, abi.ABI{}, s.backend, s.backend, s.backend)
	tx, err := contract.RawTransact(opts, call.Data)
	if err != nil {
		return common.Hash{}, err
	}

	s.logger.DebugWithChain(int(s.chainID.Int64()), "Sent %s to %s: %s (nonce %d, gas %d)",
		call.Method, call.To.Hex(), tx.Hash().Hex(), tx.Nonce(), tx.Gas())
	return tx.Hash(), nil
}

func (s *KeySigner) estimate(ctx context.Context, call airdrop.ContractCall) (uint64, error) {
	to := call.To
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &to,
		Data: call.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("%s simulation failed: %w", call.Method, err)
	}
	return gas, nil
}
