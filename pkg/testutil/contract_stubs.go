package testutil

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/airdropper/pkg/contracts"
)

// Addresses used by the contract stubs.
var (
	DistributorAddress = common.HexToAddress("0x1349A9DdEe26Fe16D0D44E35B3CB9B0CA18213a4")
	TokenAddress       = common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C")
)

// NewDistributorStub returns an empty MerkleDistributor stub.
func NewDistributorStub(t *testing.T) *ContractStub {
	t.Helper()

	parsed, err := contracts.MerkleDistributorMetaData.GetAbi()
	require.NoError(t, err)
	return NewContractStub(parsed)
}

// NewERC20Stub returns an ERC20 stub that answers name, symbol and decimals.
func NewERC20Stub(t *testing.T, name, symbol string, decimals uint8) *ContractStub {
	t.Helper()

	parsed, err := contracts.ERC20MetaData.GetAbi()
	require.NoError(t, err)
	return NewContractStub(parsed).
		Returns("name", name).
		Returns("symbol", symbol).
		Returns("decimals", decimals)
}

// DistributionValues returns the outputs of distributions(uint256) for d, in ABI order.
func DistributionValues(d contracts.MerkleDistributorDistribution) []interface{} {
	orZero := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v
	}
	return []interface{}{
		d.Token,
		d.IsERC20,
		orZero(d.WalletCount),
		orZero(d.ClaimedCount),
		orZero(d.AmountPerClaim),
		orZero(d.StartTime),
		orZero(d.EndTime),
		d.Owner,
		orZero(d.RefundedAt),
		d.MerkleRoot,
		d.Title,
		d.IpfsCID,
	}
}
