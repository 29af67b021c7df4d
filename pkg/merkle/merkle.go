// Package merkle builds the canonical batch Merkle tree the settlement
// chain commits state-root and transaction batches into, and generates
// sibling proofs against it (spec.md §3, StateRootBatchProof /
// TransactionBatchProof).
//
// This is a flat binary Merkle tree over keccak256, distinct from the
// Merkle-Patricia tries pkg/mpt builds: batches commit an ordered list of
// leaves, not a key-value map.
package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

// Root computes the root of the tree over leaves. An odd level is
// completed by duplicating its last node, matching the batch-submission
// contracts' own padding rule.
func Root(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.Hash{}
	}
	level := leaves
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// Prove returns the sibling path proving that leaves[index] occupies
// position index in the tree rooted at Root(leaves).
func Prove(leaves []common.Hash, index uint64) ([]common.Hash, error) {
	if index >= uint64(len(leaves)) {
		return nil, ferrors.New(ferrors.NotFound, "index out of bounds for batch leaves")
	}
	var siblings []common.Hash
	level := leaves
	pos := index
	for len(level) > 1 {
		siblingPos := pos ^ 1
		if siblingPos >= uint64(len(level)) {
			siblingPos = pos
		}
		siblings = append(siblings, level[siblingPos])
		level = nextLevel(level)
		pos /= 2
	}
	return siblings, nil
}

// Verify recomputes the root from leaf, index and siblings and reports
// whether it equals root (invariant I1).
func Verify(root common.Hash, leaf common.Hash, index uint64, siblings []common.Hash) bool {
	cur := leaf
	pos := index
	for _, sib := range siblings {
		if pos%2 == 0 {
			cur = hashPair(cur, sib)
		} else {
			cur = hashPair(sib, cur)
		}
		pos /= 2
	}
	return cur == root
}

func nextLevel(level []common.Hash) []common.Hash {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}
	next := make([]common.Hash, len(level)/2)
	for i := 0; i < len(next); i++ {
		next[i] = hashPair(level[2*i], level[2*i+1])
	}
	return next
}

func hashPair(a, b common.Hash) common.Hash {
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}
