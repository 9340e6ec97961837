// Package merkle builds the whitelist Merkle root and proofs checked by the distributor contract.
//
// Leaves are keccak256 of the 20 address bytes, kept in the caller's order. The list is
// neither sorted nor deduplicated: an off-chain verifier rebuilds the root from the stored
// address list in the same order.
package merkle

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
)

// NormalizeAddress parses a 0x-prefixed hex address. All-lowercase and all-uppercase input is
// accepted as is; mixed-case input must carry a valid EIP-55 checksum.
func NormalizeAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, airdroperrors.NewInvalidInputError("address %q must be 0x-prefixed", s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, airdroperrors.NewInvalidInputError("malformed address %q", s)
	}

	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != "0x"+body {
		return common.Address{}, airdroperrors.NewInvalidInputError("address %q has an invalid checksum", s)
	}
	return addr, nil
}

// LeafHash returns the leaf for an address.
func LeafHash(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

// Leaves validates the list and hashes every entry, preserving order.
func Leaves(addresses []string) ([]common.Hash, error) {
	if len(addresses) == 0 {
		return nil, airdroperrors.NewInvalidInputError("recipient list is empty")
	}

	leaves := make([]common.Hash, len(addresses))
	for i, raw := range addresses {
		addr, err := NormalizeAddress(raw)
		if err != nil {
			return nil, err
		}
		leaves[i] = LeafHash(addr)
	}
	return leaves, nil
}

// BuildTree validates addresses and returns the whole tree.
func BuildTree(addresses []string) (*Tree, error) {
	leaves, err := Leaves(addresses)
	if err != nil {
		return nil, err
	}
	return NewTree(leaves)
}

// BuildRoot returns the whitelist root for addresses.
func BuildRoot(addresses []string) (common.Hash, error) {
	tree, err := BuildTree(addresses)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root, nil
}

// BuildProof returns the proof for the address at index.
func BuildProof(addresses []string, index int) ([]common.Hash, error) {
	tree, err := BuildTree(addresses)
	if err != nil {
		return nil, err
	}
	proof, err := tree.ProofAt(index)
	if err != nil {
		return nil, airdroperrors.NewInvalidInputError("no recipient at index %d of %d", index, len(addresses))
	}
	return proof, nil
}

// ProofFor returns the proof for the first occurrence of wallet in addresses.
func ProofFor(addresses []string, wallet string) ([]common.Hash, error) {
	target, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}

	tree, err := BuildTree(addresses)
	if err != nil {
		return nil, err
	}

	leaf := LeafHash(target)
	for i, h := range tree.Layers[0] {
		if h == leaf {
			return tree.ProofAt(i)
		}
	}
	return nil, airdroperrors.NewInvalidInputError("%s is not in the recipient list", target.Hex())
}

// VerifyProof reports whether wallet with proof is a member of root.
func VerifyProof(root common.Hash, wallet common.Address, proof []common.Hash) bool {
	return Verify(root, LeafHash(wallet), proof)
}

// RootHex renders a root as 0x-prefixed hex.
func RootHex(root common.Hash) string {
	return hexutil.Encode(root[:])
}
