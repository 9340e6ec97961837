package mocks

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/speedrun-hq/airdropper/pkg/airdrop"
)

// Signer is a testify mock of airdrop.Signer.
type Signer struct {
	mock.Mock
}

var _ airdrop.Signer = (*Signer)(nil)

// NewSigner creates a Signer whose expectations are asserted when the test ends.
func NewSigner(t *testing.T) *Signer {
	m := &Signer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (_m *Signer) Address() common.Address {
	ret := _m.Called()
	return ret.Get(0).(common.Address)
}

func (_m *Signer) ChainID(ctx context.Context) (*big.Int, error) {
	ret := _m.Called(ctx)

	var r0 *big.Int
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*big.Int)
	}
	return r0, ret.Error(1)
}

func (_m *Signer) SwitchChain(ctx context.Context, chainID *big.Int) error {
	ret := _m.Called(ctx, chainID)
	return ret.Error(0)
}

func (_m *Signer) SimulateContract(ctx context.Context, call airdrop.ContractCall) error {
	ret := _m.Called(ctx, call)
	return ret.Error(0)
}

func (_m *Signer) WriteContract(ctx context.Context, call airdrop.ContractCall) (common.Hash, error) {
	ret := _m.Called(ctx, call)

	if fn, ok := ret.Get(0).(func(context.Context, airdrop.ContractCall) (common.Hash, error)); ok {
		return fn(ctx, call)
	}
	return ret.Get(0).(common.Hash), ret.Error(1)
}
