package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MerkleDistributorMetaData contains the subset of the MerkleDistributor ABI used by the airdrop core.
var MerkleDistributorMetaData = &bind.MetaData{
	ABI: `[
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "bool", "name": "isERC20", "type": "bool"},
			{"internalType": "uint176", "name": "amountPerClaim", "type": "uint176"},
			{"internalType": "uint40", "name": "walletCount", "type": "uint40"},
			{"internalType": "uint40", "name": "startTime", "type": "uint40"},
			{"internalType": "uint40", "name": "endTime", "type": "uint40"},
			{"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
			{"internalType": "string", "name": "title", "type": "string"},
			{"internalType": "string", "name": "ipfsCID", "type": "string"}
		],
		"name": "createDistribution",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "distributionId", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "merkleProof", "type": "bytes32[]"}
		],
		"name": "claim",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"name": "distributions",
		"outputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "bool", "name": "isERC20", "type": "bool"},
			{"internalType": "uint40", "name": "walletCount", "type": "uint40"},
			{"internalType": "uint40", "name": "claimedCount", "type": "uint40"},
			{"internalType": "uint176", "name": "amountPerClaim", "type": "uint176"},
			{"internalType": "uint40", "name": "startTime", "type": "uint40"},
			{"internalType": "uint40", "name": "endTime", "type": "uint40"},
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "uint40", "name": "refundedAt", "type": "uint40"},
			{"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
			{"internalType": "string", "name": "title", "type": "string"},
			{"internalType": "string", "name": "ipfsCID", "type": "string"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "distributionCount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "distributionId", "type": "uint256"},
			{"internalType": "address", "name": "wallet", "type": "address"}
		],
		"name": "isClaimed",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "distributionId", "type": "uint256"}],
		"name": "isWhitelistOnly",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "distributionId", "type": "uint256"},
			{"internalType": "address", "name": "wallet", "type": "address"},
			{"internalType": "bytes32[]", "name": "merkleProof", "type": "bytes32[]"}
		],
		"name": "isWhitelisted",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "distributionId", "type": "uint256"}],
		"name": "getAmountLeft",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "distributionId", "type": "uint256"}],
		"name": "getAmountClaimed",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`,
}

// MerkleDistributorABI is the input ABI used to generate the binding from.
var MerkleDistributorABI = MerkleDistributorMetaData.ABI

// MerkleDistributorDistribution is the tuple returned by distributions(uint256).
type MerkleDistributorDistribution struct {
	Token          common.Address
	IsERC20        bool
	WalletCount    *big.Int
	ClaimedCount   *big.Int
	AmountPerClaim *big.Int
	StartTime      *big.Int
	EndTime        *big.Int
	Owner          common.Address
	RefundedAt     *big.Int
	MerkleRoot     [32]byte
	Title          string
	IpfsCID        string
}

// MerkleDistributorCaller is a read-only binding around the MerkleDistributor contract.
type MerkleDistributorCaller struct {
	contract *bind.BoundContract
}

// MerkleDistributorTransactor is a write-only binding around the MerkleDistributor contract.
type MerkleDistributorTransactor struct {
	contract *bind.BoundContract
}

// NewMerkleDistributorCaller creates a new read-only instance of MerkleDistributor, bound to a specific deployed contract.
func NewMerkleDistributorCaller(address common.Address, caller bind.ContractCaller) (*MerkleDistributorCaller, error) {
	contract, err := bindMerkleDistributor(address, caller, nil, nil)
	if err != nil {
		return nil, err
	}
	return &MerkleDistributorCaller{contract: contract}, nil
}

// NewMerkleDistributorTransactor creates a new write-only instance of MerkleDistributor, bound to a specific deployed contract.
func NewMerkleDistributorTransactor(address common.Address, transactor bind.ContractTransactor) (*MerkleDistributorTransactor, error) {
	contract, err := bindMerkleDistributor(address, nil, transactor, nil)
	if err != nil {
		return nil, err
	}
	return &MerkleDistributorTransactor{contract: contract}, nil
}

// bindMerkleDistributor binds a generic wrapper to an already deployed contract.
func bindMerkleDistributor(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := MerkleDistributorMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, *parsed, caller, transactor, filterer), nil
}

// Distributions is a free data retrieval call binding the contract method distributions.
//
// Solidity: function distributions(uint256) view returns(address token, bool isERC20, uint40 walletCount, uint40 claimedCount, uint176 amountPerClaim, uint40 startTime, uint40 endTime, address owner, uint40 refundedAt, bytes32 merkleRoot, string title, string ipfsCID)
func (_MerkleDistributor *MerkleDistributorCaller) Distributions(opts *bind.CallOpts, id *big.Int) (MerkleDistributorDistribution, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "distributions", id)

	outstruct := new(MerkleDistributorDistribution)
	if err != nil {
		return *outstruct, err
	}

	outstruct.Token = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	outstruct.IsERC20 = *abi.ConvertType(out[1], new(bool)).(*bool)
	outstruct.WalletCount = *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	outstruct.ClaimedCount = *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)
	outstruct.AmountPerClaim = *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)
	outstruct.StartTime = *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)
	outstruct.EndTime = *abi.ConvertType(out[6], new(*big.Int)).(**big.Int)
	outstruct.Owner = *abi.ConvertType(out[7], new(common.Address)).(*common.Address)
	outstruct.RefundedAt = *abi.ConvertType(out[8], new(*big.Int)).(**big.Int)
	outstruct.MerkleRoot = *abi.ConvertType(out[9], new([32]byte)).(*[32]byte)
	outstruct.Title = *abi.ConvertType(out[10], new(string)).(*string)
	outstruct.IpfsCID = *abi.ConvertType(out[11], new(string)).(*string)

	return *outstruct, err
}

// DistributionCount is a free data retrieval call binding the contract method distributionCount.
//
// Solidity: function distributionCount() view returns(uint256)
func (_MerkleDistributor *MerkleDistributorCaller) DistributionCount(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "distributionCount")
	if err != nil {
		return new(big.Int), err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// IsClaimed is a free data retrieval call binding the contract method isClaimed.
//
// Solidity: function isClaimed(uint256 distributionId, address wallet) view returns(bool)
func (_MerkleDistributor *MerkleDistributorCaller) IsClaimed(opts *bind.CallOpts, id *big.Int, wallet common.Address) (bool, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "isClaimed", id, wallet)
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// IsWhitelistOnly is a free data retrieval call binding the contract method isWhitelistOnly.
//
// Solidity: function isWhitelistOnly(uint256 distributionId) view returns(bool)
func (_MerkleDistributor *MerkleDistributorCaller) IsWhitelistOnly(opts *bind.CallOpts, id *big.Int) (bool, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "isWhitelistOnly", id)
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// IsWhitelisted is a free data retrieval call binding the contract method isWhitelisted.
//
// Solidity: function isWhitelisted(uint256 distributionId, address wallet, bytes32[] merkleProof) view returns(bool)
func (_MerkleDistributor *MerkleDistributorCaller) IsWhitelisted(opts *bind.CallOpts, id *big.Int, wallet common.Address, proof [][32]byte) (bool, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "isWhitelisted", id, wallet, proof)
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// GetAmountLeft is a free data retrieval call binding the contract method getAmountLeft.
//
// Solidity: function getAmountLeft(uint256 distributionId) view returns(uint256)
func (_MerkleDistributor *MerkleDistributorCaller) GetAmountLeft(opts *bind.CallOpts, id *big.Int) (*big.Int, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "getAmountLeft", id)
	if err != nil {
		return new(big.Int), err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetAmountClaimed is a free data retrieval call binding the contract method getAmountClaimed.
//
// Solidity: function getAmountClaimed(uint256 distributionId) view returns(uint256)
func (_MerkleDistributor *MerkleDistributorCaller) GetAmountClaimed(opts *bind.CallOpts, id *big.Int) (*big.Int, error) {
	var out []interface{}
	err := _MerkleDistributor.contract.Call(opts, &out, "getAmountClaimed", id)
	if err != nil {
		return new(big.Int), err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// CreateDistribution is a paid mutator transaction binding the contract method createDistribution.
//
// Solidity: function createDistribution(address token, bool isERC20, uint176 amountPerClaim, uint40 walletCount, uint40 startTime, uint40 endTime, bytes32 merkleRoot, string title, string ipfsCID) returns()
func (_MerkleDistributor *MerkleDistributorTransactor) CreateDistribution(opts *bind.TransactOpts, args CreateDistributionArgs) (*types.Transaction, error) {
	return _MerkleDistributor.contract.Transact(opts, "createDistribution", args.values()...)
}

// Claim is a paid mutator transaction binding the contract method claim.
//
// Solidity: function claim(uint256 distributionId, bytes32[] merkleProof) returns()
func (_MerkleDistributor *MerkleDistributorTransactor) Claim(opts *bind.TransactOpts, id *big.Int, proof [][32]byte) (*types.Transaction, error) {
	return _MerkleDistributor.contract.Transact(opts, "claim", id, proof)
}

// CreateDistributionArgs are the arguments of createDistribution in ABI order.
type CreateDistributionArgs struct {
	Token          common.Address
	IsERC20        bool
	AmountPerClaim *big.Int
	WalletCount    *big.Int
	StartTime      *big.Int
	EndTime        *big.Int
	MerkleRoot     [32]byte
	Title          string
	IpfsCID        string
}

func (a CreateDistributionArgs) values() []interface{} {
	return []interface{}{
		a.Token, a.IsERC20, a.AmountPerClaim, a.WalletCount,
		a.StartTime, a.EndTime, a.MerkleRoot, a.Title, a.IpfsCID,
	}
}

// PackCreateDistribution returns the calldata for createDistribution.
func PackCreateDistribution(args CreateDistributionArgs) ([]byte, error) {
	parsed, err := MerkleDistributorMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("createDistribution", args.values()...)
}
