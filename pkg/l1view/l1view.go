// Package l1view is the read-only adapter over the settlement chain (C1):
// it resolves batch headers, state-root inclusion proofs, and transaction
// inclusion proofs by global index (spec.md §4.1).
package l1view

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/commitmentchain"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/transactionchain"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/merkle"
)

// View is the settlement-chain read adapter.
type View struct {
	commitmentChain  *commitmentchain.StateCommitmentChain
	transactionChain *transactionchain.CanonicalTransactionChain
	log              log.Logger
}

// New binds View to the given already-resolved contract addresses.
func New(commitmentChainAddr, transactionChainAddr common.Address, backend bind.ContractBackend) (*View, error) {
	cc, err := commitmentchain.New(commitmentChainAddr, backend)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Fatal, "binding state commitment chain", err)
	}
	tc, err := transactionchain.New(transactionChainAddr, backend)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Fatal, "binding canonical transaction chain", err)
	}
	return &View{commitmentChain: cc, transactionChain: tc, log: log.New("component", "l1view")}, nil
}

// locatedBatch is the batch found to enclose a global index, plus its
// offset within the batch and the full ordered leaf set.
type locatedBatch struct {
	header fraudtypes.StateRootBatchHeader
	offset uint64
	leaves []common.Hash
}

// locateStateRootBatch scans StateBatchAppended events in ascending order
// until prevTotalElements <= index < prevTotalElements + batchSize, per the
// derivation policy of spec.md §4.1.
func (v *View) locateStateRootBatch(ctx context.Context, index fraudtypes.GlobalIndex) (*locatedBatch, error) {
	events, err := v.commitmentChain.FilterStateBatchAppended(ctx)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Transport, "filtering StateBatchAppended", err)
	}
	for _, ev := range events {
		prev := ev.PrevTotalElements.Uint64()
		size := ev.BatchSize.Uint64()
		if uint64(index) < prev || uint64(index) >= prev+size {
			continue
		}
		leaves, err := v.commitmentChain.GetStateRootBatchLeaves(&bind.CallOpts{Context: ctx}, ev.BatchIndex)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.Transport, "fetching state root batch leaves", err)
		}
		return &locatedBatch{
			header: fraudtypes.StateRootBatchHeader{
				BatchIndex:        ev.BatchIndex,
				BatchRoot:         ev.BatchRoot,
				BatchSize:         ev.BatchSize,
				PrevTotalElements: ev.PrevTotalElements,
				ExtraData:         ev.ExtraData,
			},
			offset: uint64(index) - prev,
			leaves: leaves,
		}, nil
	}
	return nil, ferrors.New(ferrors.NotFound, "no batch encloses state root index")
}

// GetStateRootBatchHeader returns the header of the batch enclosing index,
// or a NotFound error if index lies beyond the last appended batch.
func (v *View) GetStateRootBatchHeader(ctx context.Context, index fraudtypes.GlobalIndex) (*fraudtypes.StateRootBatchHeader, error) {
	batch, err := v.locateStateRootBatch(ctx, index)
	if err != nil {
		return nil, err
	}
	return &batch.header, nil
}

// GetStateRoot returns the state root at index.
func (v *View) GetStateRoot(ctx context.Context, index fraudtypes.GlobalIndex) (common.Hash, error) {
	batch, err := v.locateStateRootBatch(ctx, index)
	if err != nil {
		return common.Hash{}, err
	}
	if batch.offset >= uint64(len(batch.leaves)) {
		return common.Hash{}, ferrors.New(ferrors.CorruptWitness, "batch offset beyond fetched leaves")
	}
	return batch.leaves[batch.offset], nil
}

// GetStateRootBatchProof returns the inclusion proof for the state root at
// index against the batch it is enclosed in (invariant I1).
func (v *View) GetStateRootBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.StateRootBatchProof, error) {
	batch, err := v.locateStateRootBatch(ctx, index)
	if err != nil {
		return fraudtypes.StateRootBatchProof{}, err
	}
	siblings, err := merkle.Prove(batch.leaves, batch.offset)
	if err != nil {
		return fraudtypes.StateRootBatchProof{}, ferrors.Wrap(ferrors.CorruptWitness, "proving state root batch leaf", err)
	}
	return fraudtypes.StateRootBatchProof{
		StateRoot:            batch.leaves[batch.offset],
		StateRootBatchHeader: batch.header,
		StateRootProof: fraudtypes.MerkleInclusionProof{
			Index:    new(big.Int).SetUint64(batch.offset),
			Siblings: hashesTo32s(siblings),
		},
	}, nil
}

// GetTransactionBatchProof returns the transaction-chain analogue of
// GetStateRootBatchProof: the OVM transaction at index, its chain element,
// and the inclusion proof of that element in its batch.
func (v *View) GetTransactionBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.TransactionBatchProof, error) {
	events, err := v.transactionChain.FilterTransactionBatchAppended(ctx)
	if err != nil {
		return fraudtypes.TransactionBatchProof{}, ferrors.Wrap(ferrors.Transport, "filtering TransactionBatchAppended", err)
	}

	for _, ev := range events {
		prev := ev.PrevTotalElements.Uint64()
		size := ev.BatchSize.Uint64()
		if uint64(index) < prev || uint64(index) >= prev+size {
			continue
		}
		offset := uint64(index) - prev

		batchLeaves, err := v.transactionChain.GetTransactionBatchLeaves(&bind.CallOpts{Context: ctx}, ev.BatchIndex)
		if err != nil {
			return fraudtypes.TransactionBatchProof{}, ferrors.Wrap(ferrors.Transport, "fetching transaction batch leaves", err)
		}
		if offset >= uint64(len(batchLeaves)) {
			return fraudtypes.TransactionBatchProof{}, ferrors.New(ferrors.CorruptWitness, "batch offset beyond fetched transaction leaves")
		}

		leafHashes := make([]common.Hash, len(batchLeaves))
		for i, l := range batchLeaves {
			leafHashes[i] = hashChainElement(l.ChainElement)
		}
		siblings, err := merkle.Prove(leafHashes, offset)
		if err != nil {
			return fraudtypes.TransactionBatchProof{}, ferrors.Wrap(ferrors.CorruptWitness, "proving transaction batch leaf", err)
		}

		leaf := batchLeaves[offset]
		return fraudtypes.TransactionBatchProof{
			Transaction: fraudtypes.OVMTransaction{
				Timestamp:     leaf.Transaction.Timestamp,
				BlockNumber:   leaf.Transaction.BlockNumber,
				L1QueueOrigin: leaf.Transaction.L1QueueOrigin,
				L1TxOrigin:    leaf.Transaction.L1TxOrigin,
				Entrypoint:    leaf.Transaction.Entrypoint,
				GasLimit:      leaf.Transaction.GasLimit,
				Data:          leaf.Transaction.Data,
			},
			TransactionChainElement: fraudtypes.TransactionChainElement{
				IsSequenced: leaf.ChainElement.IsSequenced,
				QueueIndex:  leaf.ChainElement.QueueIndex,
				Timestamp:   leaf.ChainElement.Timestamp,
				BlockNumber: leaf.ChainElement.BlockNumber,
			},
			TransactionBatchHeader: fraudtypes.StateRootBatchHeader{
				BatchIndex:        ev.BatchIndex,
				BatchRoot:         ev.BatchRoot,
				BatchSize:         ev.BatchSize,
				PrevTotalElements: ev.PrevTotalElements,
				ExtraData:         ev.ExtraData,
			},
			TransactionProof: fraudtypes.MerkleInclusionProof{
				Index:    new(big.Int).SetUint64(offset),
				Siblings: hashesTo32s(siblings),
			},
		}, nil
	}
	return fraudtypes.TransactionBatchProof{}, ferrors.New(ferrors.NotFound, "no batch encloses transaction index")
}

func hashChainElement(e transactionchain.TransactionChainElement) common.Hash {
	buf := make([]byte, 0, 1+32+32+32)
	if e.IsSequenced {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, common.LeftPadBytes(e.QueueIndex.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(e.Timestamp.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(e.BlockNumber.Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

func hashesTo32s(hashes []common.Hash) [][32]byte {
	out := make([][32]byte, len(hashes))
	for i, h := range hashes {
		out[i] = h
	}
	return out
}
