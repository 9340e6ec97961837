package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func TestPackApprove(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data, err := PackApprove(spender, big.NewInt(1000))
	require.NoError(t, err)

	require.Len(t, data, 4+32*2)
	assert.Equal(t, selector("approve(address,uint256)"), data[:4])
	assert.Equal(t, spender.Bytes(), data[4+12:4+32])
	assert.Equal(t, int64(1000), new(big.Int).SetBytes(data[4+32:]).Int64())
}

func TestPackCreateDistribution(t *testing.T) {
	args := CreateDistributionArgs{
		Token:          common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C"),
		IsERC20:        true,
		AmountPerClaim: big.NewInt(100),
		WalletCount:    big.NewInt(3),
		StartTime:      big.NewInt(1_700_000_000),
		EndTime:        big.NewInt(1_700_086_400),
		MerkleRoot:     common.HexToHash("0x01"),
		Title:          "Season 1",
		IpfsCID:        "bafy",
	}

	data, err := PackCreateDistribution(args)
	require.NoError(t, err)
	assert.Equal(t,
		selector("createDistribution(address,bool,uint176,uint40,uint40,uint40,bytes32,string,string)"),
		data[:4])

	parsed, err := MerkleDistributorMetaData.GetAbi()
	require.NoError(t, err)
	values, err := parsed.Methods["createDistribution"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, values, 9)
	assert.Equal(t, args.Token, values[0])
	assert.Equal(t, "Season 1", values[7])
	assert.Equal(t, "bafy", values[8])
}
