package mpt

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

// account is the canonical on-trie account record (spec.md §6): RLP over
// (nonce, balance, storageRoot, codeHash), the same four fields and order as
// go-ethereum's own state account, fixed here by the verifier contract's ABI
// rather than by core/types.
type account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

// EncodeAccount produces the canonical RLP blob the phase driver puts into
// the local state trie under keccak256(address) (spec.md §4.6.2(d.2)).
func EncodeAccount(nonce uint64, balance *big.Int, storageRoot, codeHash common.Hash) ([]byte, error) {
	if balance == nil {
		balance = new(big.Int)
	}
	buf, err := rlp.EncodeToBytes(account{Nonce: nonce, Balance: balance, StorageRoot: storageRoot, CodeHash: codeHash})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "encoding account", err)
	}
	return buf, nil
}

// EncodeStorageValue produces the canonical RLP blob for a storage slot
// value: RLP over the leading-zero-stripped big-endian representation
// (spec.md §6), matching big.Int.Bytes()'s own stripping.
func EncodeStorageValue(value common.Hash) ([]byte, error) {
	stripped := new(big.Int).SetBytes(value.Bytes()).Bytes()
	buf, err := rlp.EncodeToBytes(stripped)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "encoding storage value", err)
	}
	return buf, nil
}

// EncodeProof RLP-encodes a trie inclusion proof as the list of nodes
// submitted on-chain (spec.md §6), the wire form proveContractState,
// proveStorageSlot, commitContractState and commitStorageSlot all expect.
func EncodeProof(nodes [][]byte) ([]byte, error) {
	buf, err := rlp.EncodeToBytes(nodes)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "encoding inclusion proof", err)
	}
	return buf, nil
}
