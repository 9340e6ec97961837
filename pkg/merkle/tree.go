package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashPairSize defines the size of hash pairs when computing parent nodes.
const HashPairSize = 2

// Tree is a sorted-pair keccak Merkle tree. An odd node at the end of a layer is
// carried up unchanged rather than paired with itself.
type Tree struct {
	// Root is the single hash of the top layer.
	Root common.Hash

	// Layers holds every layer from the leaves (index 0) up to and including the root layer.
	Layers [][]common.Hash
}

// ErrEmptyTree is returned when a tree is built or queried without leaves.
var ErrEmptyTree = errors.New("merkle tree has no leaves")

// NewTree constructs a tree from leaf hashes in the given order.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	curr := append([]common.Hash(nil), leaves...)
	layers := [][]common.Hash{curr}

	for len(curr) > 1 {
		next := make([]common.Hash, 0, (len(curr)+1)/HashPairSize)
		for i := 0; i < len(curr); i += HashPairSize {
			if i+1 == len(curr) {
				next = append(next, curr[i])
				continue
			}
			next = append(next, hashPair(curr[i], curr[i+1]))
		}
		layers = append(layers, next)
		curr = next
	}

	return &Tree{
		Root:   curr[0],
		Layers: layers,
	}, nil
}

// ProofAt returns the sibling path for the leaf at index. Levels where the node was
// carried up without a sibling contribute nothing to the path.
func (t *Tree) ProofAt(index int) ([]common.Hash, error) {
	if len(t.Layers) == 0 {
		return nil, ErrEmptyTree
	}
	if index < 0 || index >= len(t.Layers[0]) {
		return nil, NewLeafIndexOutOfRangeError(index, len(t.Layers[0]))
	}

	proof := make([]common.Hash, 0, len(t.Layers)-1)
	for _, layer := range t.Layers[:len(t.Layers)-1] {
		sibling := index ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		index /= HashPairSize
	}

	return proof, nil
}

// Verify folds proof into leaf with sorted-pair hashing and compares against root.
func Verify(root, leaf common.Hash, proof []common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// LeafIndexOutOfRangeError indicates a proof was requested for a position outside the leaf layer.
type LeafIndexOutOfRangeError struct {
	Index int
	Size  int
}

// NewLeafIndexOutOfRangeError creates a new LeafIndexOutOfRangeError.
func NewLeafIndexOutOfRangeError(index, size int) *LeafIndexOutOfRangeError {
	return &LeafIndexOutOfRangeError{Index: index, Size: size}
}

func (e *LeafIndexOutOfRangeError) Error() string {
	return "leaf index out of range"
}

// hashPair hashes two nodes in ascending byte order.
func hashPair(a, b common.Hash) common.Hash {
	if a.Cmp(b) < 0 {
		return efficientHash(a, b)
	}

	return efficientHash(b, a)
}

func efficientHash(a, b common.Hash) common.Hash {
	var combined [64]byte
	copy(combined[:32], a[:])
	copy(combined[32:], b[:])

	return crypto.Keccak256Hash(combined[:])
}
