// Package fraudtypes holds the wire- and witness-level data model shared by
// every component of the prover: batch headers and proofs read from the
// settlement chain, state-diff proofs read from the rollup node, and the
// assembled witness bundle the phase driver replays on-chain.
package fraudtypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GlobalIndex is a 64-bit non-negative ordinal over rollup transactions; the
// same index numbers the state root produced by executing that transaction.
type GlobalIndex uint64

// StateRootBatchHeader is posted once per batch and never mutated afterwards.
type StateRootBatchHeader struct {
	BatchIndex        *big.Int
	BatchRoot         common.Hash
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
}

// MerkleInclusionProof is a sibling list proving a leaf's position in a
// Merkle tree whose root is known to the caller independently.
type MerkleInclusionProof struct {
	Index    *big.Int
	Siblings [][32]byte
}

// StateRootBatchProof proves that StateRoot is the leaf at
// (index - header.PrevTotalElements) of the batch rooted at header.BatchRoot.
type StateRootBatchProof struct {
	StateRoot            common.Hash
	StateRootBatchHeader StateRootBatchHeader
	StateRootProof       MerkleInclusionProof
}

// OVMTransaction is the rollup transaction as it was hashed into the
// canonical transaction chain.
type OVMTransaction struct {
	Timestamp      *big.Int
	BlockNumber    *big.Int
	L1QueueOrigin  uint8
	L1TxOrigin     common.Address
	Entrypoint     common.Address
	GasLimit       *big.Int
	Data           []byte
}

// TransactionChainElement is the metadata element that was actually hashed
// into the transaction-batch tree (distinct from the transaction payload
// itself, which the transitioner replays).
type TransactionChainElement struct {
	IsSequenced bool
	QueueIndex  *big.Int
	Timestamp   *big.Int
	BlockNumber *big.Int
}

// TransactionBatchProof is the transaction-chain analogue of StateRootBatchProof.
type TransactionBatchProof struct {
	Transaction             OVMTransaction
	TransactionChainElement TransactionChainElement
	TransactionBatchHeader  StateRootBatchHeader
	TransactionProof        MerkleInclusionProof
}

// StorageStateProof is the minimal witness for a single storage slot read or
// written while executing a transaction.
type StorageStateProof struct {
	Key   common.Hash
	Value common.Hash
	Proof [][]byte
}

// AccountStateProof is the minimal witness for a single account touched by a
// transaction: the account's own MPT inclusion proof plus one storage proof
// per slot read or written.
type AccountStateProof struct {
	Address      common.Address
	Nonce        uint64
	Balance      *big.Int
	CodeHash     common.Hash
	StorageRoot  common.Hash
	AccountProof [][]byte
	StorageProof []StorageStateProof
}

// StateDiffProof is the minimal witness for every account and slot read or
// written while executing one transaction against its pre-state-root.
type StateDiffProof struct {
	Header             StateRootBatchHeader
	AccountStateProofs []AccountStateProof
}

// FraudProofData is the self-contained witness bundle the phase driver
// drives on-chain. StateTrie and StorageTries are live working copies that
// must track on-chain commitments as the dispute progresses (I3).
type FraudProofData struct {
	Index  GlobalIndex
	Pre    StateRootBatchProof
	Post   StateRootBatchProof
	TxProof TransactionBatchProof
	Diff   StateDiffProof

	StateTrie    Trie
	StorageTries map[common.Address]Trie
}

// Trie is the minimal interface the phase driver needs from a trie view; it
// is satisfied by *mpt.Trie without the phase driver importing mpt's proof
// construction internals directly (kept here to avoid an import cycle
// between fraudtypes and mpt, which both describe witness state).
type Trie interface {
	Root() common.Hash
	Put(key, value []byte) error
	Prove(key []byte) ([][]byte, error)
}
