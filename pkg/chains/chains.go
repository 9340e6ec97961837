package chains

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EthereumChainID    = 1
	BaseChainID        = 8453
	BaseSepoliaChainID = 84532
)

// chainNames maps chain IDs to their names
var chainNames = map[int]string{
	EthereumChainID:    "ETHEREUM",
	BaseChainID:        "BASE",
	BaseSepoliaChainID: "BASE_SEPOLIA",
}

// chainSlugs maps chain IDs to the path segment used in public claim links
var chainSlugs = map[int]string{
	EthereumChainID:    "mainnet",
	BaseChainID:        "base",
	BaseSepoliaChainID: "basesepolia",
}

// defaultRPCEndpoints lists public endpoints in rotation order
var defaultRPCEndpoints = map[int][]string{
	BaseChainID: {
		"https://mainnet.base.org",
		"https://base.blockpi.network/v1/rpc/public",
		"https://base.llamarpc.com",
		"https://base.drpc.org",
		"https://base.meowrpc.com",
		"https://base-rpc.publicnode.com",
	},
	BaseSepoliaChainID: {
		"https://sepolia.base.org",
		"https://base-sepolia-rpc.publicnode.com",
	},
}

// endpointNames maps a URL fragment to a provider name shown to users
var endpointNames = []struct {
	fragment string
	name     string
}{
	{"mainnet.base.org", "Base Official"},
	{"sepolia.base.org", "Base Official"},
	{"blockpi.network", "BlockPI"},
	{"llamarpc.com", "LlamaRPC"},
	{"drpc.org", "DRPC"},
	{"meowrpc.com", "MeowRPC"},
	{"publicnode.com", "PublicNode"},
}

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID int) string {
	return chainNames[chainID]
}

// GetChainSlug returns the claim link path segment for a chain, or an empty string
func GetChainSlug(chainID int) string {
	return chainSlugs[chainID]
}

// DefaultRPCEndpoints returns a copy of the public endpoint list for a chain
func DefaultRPCEndpoints(chainID int) []string {
	return append([]string(nil), defaultRPCEndpoints[chainID]...)
}

// EndpointDisplayName returns a provider name for an RPC URL
func EndpointDisplayName(rpcURL string) string {
	for _, e := range endpointNames {
		if strings.Contains(rpcURL, e.fragment) {
			return e.name
		}
	}
	return "Unknown RPC"
}

// Token is a well-known token on a chain
type Token struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8
}

var knownTokens = map[int][]Token{
	BaseChainID: {
		{common.HexToAddress("0x4200000000000000000000000000000000000006"), "Wrapped Ether", "WETH", 18},
		{common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), "USD Coin", "USDC", 6},
		{common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C"), "HUNT", "HUNT", 18},
		{common.HexToAddress("0xFf45161474C39cB00699070Dd49582e417b57a7E"), "MT", "MT", 18},
		{common.HexToAddress("0x13c2Bc9B3b8427791F700cB153314b487fFE8F5e"), "CHICKEN", "CHICKEN", 18},
		{common.HexToAddress("0xE3086852A4B125803C815a158249ae468A3254Ca"), "mfer", "mfer", 18},
		{common.HexToAddress("0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"), "DEGEN", "DEGEN", 18},
		{common.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf"), "Coinbase Wrapped BTC", "cbBTC", 8},
		{common.HexToAddress("0x1111111111166b7FE7bd91427724B487980aFc69"), "ZORA", "ZORA", 18},
	},
}

// KnownTokens returns the well-known tokens for a chain
func KnownTokens(chainID int) []Token {
	return append([]Token(nil), knownTokens[chainID]...)
}

// LookupToken resolves a symbol (case-insensitive) or hex address to a known token
func LookupToken(chainID int, symbolOrAddress string) (Token, bool) {
	isAddr := common.IsHexAddress(symbolOrAddress)
	for _, t := range knownTokens[chainID] {
		if isAddr && t.Address == common.HexToAddress(symbolOrAddress) {
			return t, true
		}
		if strings.EqualFold(t.Symbol, symbolOrAddress) {
			return t, true
		}
	}
	return Token{}, false
}
