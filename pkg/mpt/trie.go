// Package mpt builds in-memory Merkle-Patricia trie views from opaque proof
// node lists (spec.md C3) and keeps them as mutable working copies that the
// phase driver updates in lock-step with on-chain commitments.
package mpt

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

// Builder assembles the content-addressed node store a Trie is opened
// against. Insertion is order-independent: the resulting store is the union
// of every proof list handed to Build, keyed by each node's keccak-256 hash.
type Builder struct{}

// NewBuilder returns a Builder. It holds no state; every Build call starts a
// fresh content-addressed store.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build inserts every RLP-encoded node from proofLists into a fresh
// memorydb-backed node store, then opens a trie rooted at root against it.
// Nodes are deduplicated by hash; a hash collision with conflicting bytes is
// a CorruptWitness error, since it means two proofs disagree about what a
// given trie node actually is.
func (b *Builder) Build(root common.Hash, proofLists ...[][]byte) (*Trie, error) {
	memdb := memorydb.New()
	for _, nodes := range proofLists {
		for _, node := range nodes {
			hash := crypto.Keccak256Hash(node)
			existing, err := memdb.Get(hash.Bytes())
			if err == nil {
				if !bytes.Equal(existing, node) {
					return nil, ferrors.New(ferrors.CorruptWitness, "conflicting trie node for hash "+hash.Hex())
				}
				continue
			}
			if err := memdb.Put(hash.Bytes(), node); err != nil {
				return nil, ferrors.Wrap(ferrors.CorruptWitness, "storing proof node", err)
			}
		}
	}

	tdb := triedb.NewDatabase(rawdb.NewDatabase(memdb), nil)
	inner, err := trie.New(trie.TrieID(root), tdb)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "opening trie at root "+root.Hex(), err)
	}
	return &Trie{inner: inner, tdb: tdb}, nil
}

// Trie is a mutable working copy of a Merkle-Patricia trie, seeded from a
// witness's proof nodes. Put recomputes the root in memory without
// committing to the backing store, matching the "live view" semantics
// FraudProofData requires (I3): the root tracks local Puts, not a
// persistent database.
type Trie struct {
	inner *trie.Trie
	tdb   *triedb.Database
}

// Root returns the trie's current root hash, reflecting every Put so far.
func (t *Trie) Root() common.Hash {
	return t.inner.Hash()
}

// Put updates key to value and returns nil; the new root is visible via
// Root() immediately. The key is used as-is (callers pass already-hashed
// keys, e.g. keccak256(address) or keccak256(slotKey), per spec.md §6).
func (t *Trie) Put(key, value []byte) error {
	if err := t.inner.Update(key, value); err != nil {
		return ferrors.Wrap(ferrors.CorruptWitness, "updating trie", err)
	}
	return nil
}

// Get resolves key against the trie's current (possibly locally-updated)
// state.
func (t *Trie) Get(key []byte) ([]byte, error) {
	val, err := t.inner.Get(key)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "reading trie", err)
	}
	return val, nil
}

// Prove generates an MPT inclusion proof for key against the trie's current
// root, as a list of RLP-encoded nodes ready for rlp(a.accountProof)-style
// on-chain submission.
func (t *Trie) Prove(key []byte) ([][]byte, error) {
	var collected proofList
	if err := t.inner.Prove(key, &collected); err != nil {
		return nil, ferrors.Wrap(ferrors.CorruptWitness, "generating inclusion proof", err)
	}
	return collected, nil
}

// proofList implements ethdb.KeyValueWriter, collecting every node handed to
// it by (*trie.Trie).Prove in insertion order. Deletes are not meaningful
// for proof collection and are ignored.
type proofList [][]byte

func (n *proofList) Put(key, value []byte) error {
	*n = append(*n, value)
	return nil
}

func (n *proofList) Delete(key []byte) error {
	return nil
}
